// Package save defines the serializable game record shared by autosave,
// export and import.
//
// A record carries the board, the score and the best score. Decoding is
// strict about the board: a record without one, or with a board that is not a
// valid grid of power-of-two tiles, is rejected with ErrInvalidFile and the
// caller's state must stay untouched. Score defaults to zero and best to the
// caller's current best when absent.
package save

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/game2048/game/engine"
)

// ExportFilename is the suggested name for exported games
const ExportFilename = "2048-save.json"

var ErrInvalidFile = errors.New("invalid file")

// Format selects the on-disk encoding
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Record is the persisted game state
type Record struct {
	Board engine.Board `json:"board" yaml:"board"`
	Score int          `json:"score" yaml:"score"`
	Best  int          `json:"best" yaml:"best"`
}

// wireRecord keeps track of which fields were present in the input
type wireRecord struct {
	Board *engine.Board `json:"board" yaml:"board"`
	Score *int          `json:"score" yaml:"score"`
	Best  *int          `json:"best" yaml:"best"`
}

// FromEngine builds a record from an engine and the best score known to the caller
func FromEngine(eng engine.Engine, best int) Record {
	score := eng.Score()
	if score > best {
		best = score
	}
	return Record{Board: eng.Board(), Score: score, Best: best}
}

// FormatFromPath guesses the format from a file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// Encode writes rec in the given format
func Encode(w io.Writer, rec Record, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return enc.Close()
	default:
		if err := json.NewEncoder(w).Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		return nil
	}
}

// Marshal returns the encoded record
func Marshal(rec Record, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rec, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads and validates a record for a board of the given size. The
// currentBest value is used when the input has no best field.
func Decode(r io.Reader, format Format, size, currentBest int) (Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return Unmarshal(data, format, size, currentBest)
}

// Unmarshal is Decode for an in-memory payload
func Unmarshal(data []byte, format Format, size, currentBest int) (Record, error) {
	var wire wireRecord
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &wire)
	default:
		err = json.Unmarshal(data, &wire)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if wire.Board == nil || *wire.Board == nil {
		return Record{}, fmt.Errorf("%w: missing board", ErrInvalidFile)
	}
	if err := engine.ValidateBoard(*wire.Board, size); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	rec := Record{Board: *wire.Board, Best: currentBest}
	if wire.Score != nil {
		if *wire.Score < 0 {
			return Record{}, fmt.Errorf("%w: negative score", ErrInvalidFile)
		}
		rec.Score = *wire.Score
	}
	if wire.Best != nil && *wire.Best > 0 {
		rec.Best = *wire.Best
	}
	return rec, nil
}
