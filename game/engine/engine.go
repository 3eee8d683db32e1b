package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// State
	Board() Board
	Score() int
	Size() int
	Snapshot() Snapshot
	SetState(board Board, score int) error
	NewGame()

	// Movement
	Move(dir Direction) (MoveOutcome, error)
	CanMove() bool
	SpawnRandom() bool

	Config() Config
}

// GameEngine implements Engine. It is not safe for concurrent use.
type GameEngine struct {
	config Config
	board  Board
	score  int
	rng    RandomSource
}

// Option customizes a GameEngine
type Option func(*GameEngine)

// WithRandom injects the random source used for spawning
func WithRandom(rng RandomSource) Option {
	return func(e *GameEngine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// NewEngine creates an engine and starts a fresh game
func NewEngine(cfg Config, opts ...Option) (*GameEngine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: cfg,
		rng:    DefaultSource(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.NewGame()
	return e, nil
}

// NewEngineWithDefaults creates a classic 4x4 engine
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	e, err := NewEngine(DefaultConfig(), opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Board returns a copy of the current board
func (e *GameEngine) Board() Board {
	return Clone(e.board)
}

// Score returns the current score
func (e *GameEngine) Score() int {
	return e.score
}

// Size returns the board edge length
func (e *GameEngine) Size() int {
	return e.config.Size
}

// Config returns the rules the engine was created with
func (e *GameEngine) Config() Config {
	return e.config
}

// Snapshot captures board and score
func (e *GameEngine) Snapshot() Snapshot {
	return Snapshot{Board: e.Board(), Score: e.score}
}

// SetState replaces board and score wholesale (undo, import, restore)
func (e *GameEngine) SetState(board Board, score int) error {
	if err := ValidateBoard(board, e.config.Size); err != nil {
		return err
	}
	if score < 0 {
		return fmt.Errorf("%w: negative score %d", ErrInvalidBoard, score)
	}
	e.board = Clone(board)
	e.score = score
	return nil
}

// NewGame clears the board, resets the score and spawns the starting tiles
func (e *GameEngine) NewGame() {
	e.board = NewBoard(e.config.Size)
	e.score = 0
	for i := 0; i < e.config.StartTiles; i++ {
		e.SpawnRandom()
	}
}

// Move slides the board toward dir. A move that changes nothing leaves the
// score alone and spawns nothing.
func (e *GameEngine) Move(dir Direction) (MoveOutcome, error) {
	next, gained, changed, err := Slide(e.board, dir)
	if err != nil {
		return MoveOutcome{}, err
	}

	if changed {
		e.board = next
		e.score += gained
		e.SpawnRandom()
	} else {
		gained = 0
	}

	return MoveOutcome{
		Changed:   changed,
		ScoreGain: gained,
		Board:     e.Board(),
		GameOver:  !e.CanMove(),
	}, nil
}

// CanMove reports whether any move is still possible
func (e *GameEngine) CanMove() bool {
	return HasMoves(e.board)
}

// SpawnRandom places a 2 or 4 on a random empty cell. It returns false when
// the board is full.
func (e *GameEngine) SpawnRandom() bool {
	empty := EmptyCells(e.board)
	if len(empty) == 0 {
		return false
	}
	cell := empty[e.rng.Intn(len(empty))]
	value := 2
	if e.rng.Float64() >= 1-e.config.FourProbability {
		value = 4
	}
	e.board[cell.Row][cell.Col] = value
	return true
}
