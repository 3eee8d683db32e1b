package engine

import "fmt"

// Config holds the rule parameters of a game
type Config struct {
	Name            string  `json:"name" yaml:"name" mapstructure:"name"`
	Description     string  `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Size            int     `json:"size" yaml:"size" mapstructure:"size"`
	StartTiles      int     `json:"start_tiles" yaml:"start_tiles" mapstructure:"start_tiles"`
	FourProbability float64 `json:"four_probability" yaml:"four_probability" mapstructure:"four_probability"`
}

// DefaultConfig returns the classic 4x4 rules
func DefaultConfig() Config {
	return Config{
		Name:            "Classic",
		Description:     "4x4 board, two starting tiles, one spawn in ten is a 4",
		Size:            DefaultSize,
		StartTiles:      DefaultStartTiles,
		FourProbability: DefaultFourProbability,
	}
}

// ValidateConfig checks that a configuration describes a playable game
func ValidateConfig(cfg Config) error {
	if cfg.Size < MinSize || cfg.Size > MaxSize {
		return fmt.Errorf("%w: size must be between %d and %d, got %d", ErrInvalidConfig, MinSize, MaxSize, cfg.Size)
	}
	if cfg.StartTiles < 0 || cfg.StartTiles > cfg.Size*cfg.Size {
		return fmt.Errorf("%w: start_tiles must be between 0 and %d, got %d", ErrInvalidConfig, cfg.Size*cfg.Size, cfg.StartTiles)
	}
	if cfg.FourProbability < 0 || cfg.FourProbability > 1 {
		return fmt.Errorf("%w: four_probability must be within [0, 1], got %g", ErrInvalidConfig, cfg.FourProbability)
	}
	return nil
}

// ValidateBoard checks that b is a size x size grid whose non-empty cells are
// powers of two no smaller than 2.
func ValidateBoard(b Board, size int) error {
	if len(b) != size {
		return fmt.Errorf("%w: expected %d rows, got %d", ErrInvalidBoard, size, len(b))
	}
	for i, row := range b {
		if len(row) != size {
			return fmt.Errorf("%w: row %d must have %d cells, got %d", ErrInvalidBoard, i, size, len(row))
		}
		for j, v := range row {
			if v == 0 {
				continue
			}
			if v < 2 || v&(v-1) != 0 {
				return fmt.Errorf("%w: cell (%d,%d) holds %d, not a power of two", ErrInvalidBoard, i, j, v)
			}
		}
	}
	return nil
}
