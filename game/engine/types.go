package engine

import (
	"errors"
	"strings"
)

const (
	// Board dimensions
	DefaultSize = 4
	MinSize     = 2
	MaxSize     = 8

	// Spawning
	DefaultStartTiles      = 2
	DefaultFourProbability = 0.1

	// Largest tile the feature encoding normalizes against (2^11)
	FeatureScale = 11
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidBoard     = errors.New("invalid board")
	ErrInvalidConfig    = errors.New("invalid engine config")
)

// Board is a square grid of tile values in row-major order. Zero is empty.
type Board [][]int

// Direction names the edge the tiles slide toward
type Direction string

const (
	Left  Direction = "left"
	Up    Direction = "up"
	Right Direction = "right"
	Down  Direction = "down"
)

// Directions lists every direction in action-index order.
var Directions = []Direction{Left, Up, Right, Down}

// ParseDirection accepts direction names, arrow key names and vi keys.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "arrowleft", "h":
		return Left, nil
	case "up", "arrowup", "k":
		return Up, nil
	case "right", "arrowright", "l":
		return Right, nil
	case "down", "arrowdown", "j":
		return Down, nil
	}
	return "", ErrInvalidDirection
}

func (d Direction) String() string { return string(d) }

// Index returns the position of d in Directions, or -1.
func (d Direction) Index() int {
	for i, dir := range Directions {
		if dir == d {
			return i
		}
	}
	return -1
}

// MoveOutcome is the result of a single move attempt
type MoveOutcome struct {
	Changed   bool  `json:"changed"`
	ScoreGain int   `json:"score_gain"`
	Board     Board `json:"board"`
	GameOver  bool  `json:"game_over"`
}

// Snapshot captures board and score so a move can be reverted
type Snapshot struct {
	Board Board `json:"board"`
	Score int   `json:"score"`
}
