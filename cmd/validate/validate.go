package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/game2048/game/config"
	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/save"
)

// ValidationResult captures the outcome of validating a single file.
// Info holds notes about a valid file; Errors the problems of an invalid one.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) ValidationResult {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	return *r
}

func (r *ValidationResult) note(format string, args ...interface{}) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// boardSize reads the number of board rows without validating anything. YAML
// is a superset of JSON so one decoder covers both formats.
func boardSize(data []byte) int {
	var rows struct {
		Board [][]int `yaml:"board"`
	}
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return 0
	}
	return len(rows.Board)
}

// validateSave checks a saved game. A zero size accepts any board size
// between engine.MinSize and engine.MaxSize.
func validateSave(filePath string, size int) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return result.fail("Failed to read file: %v", err)
	}

	if size == 0 {
		size = boardSize(data)
		if size < engine.MinSize || size > engine.MaxSize {
			size = engine.DefaultSize
		}
	}

	rec, err := save.Unmarshal(data, save.FormatFromPath(filePath), size, 0)
	if err != nil {
		return result.fail("%v", err)
	}
	if rec.Best > 0 && rec.Best < rec.Score {
		result.note("best %d is below score %d and will be raised on import", rec.Best, rec.Score)
	}

	result.note("board %dx%d, score %d, best %d", size, size, rec.Score, rec.Best)
	result.note("max tile %d, %d empty cells", engine.MaxTile(rec.Board), len(engine.EmptyCells(rec.Board)))
	if engine.HasMoves(rec.Board) {
		result.note("moves left: %s", strings.Join(possibleMoves(rec.Board), ", "))
	} else {
		result.note("game over: no moves left")
	}
	return result
}

func possibleMoves(b engine.Board) []string {
	var moves []string
	for _, dir := range engine.Directions {
		if _, _, changed, err := engine.Slide(b, dir); err == nil && changed {
			moves = append(moves, dir.String())
		}
	}
	return moves
}

// validateVariant checks a rule variant file and summarizes what it implies
// for play.
func validateVariant(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	variant, err := config.ReadVariant(filePath)
	if err != nil {
		return result.fail("%v", err)
	}

	cells := variant.Size * variant.Size
	p := variant.FourProbability
	result.note("%s: %dx%d board, %d starting tiles", variant.Name, variant.Size, variant.Size, variant.StartTiles)
	result.note("spawns a 4 with probability %.2f, mean spawn value %.2f", p, 2*(1-p)+4*p)
	// A full board can hold at most one tile per exponent, plus a spawned 4
	result.note("largest reachable tile 2^%d", cells+1)
	if variant.StartTiles == 0 {
		result.note("board starts empty and can never move")
	}
	return result
}

// isVariantFile tells variants and saves apart for directory scans
func isVariantFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// collect expands directories into the variant and save files they contain
func collect(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && isVariantFile(entry.Name()) {
				files = append(files, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return files, nil
}
