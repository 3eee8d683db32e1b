package engine

import "math/bits"

// NewBoard returns an empty size x size board
func NewBoard(size int) Board {
	b := make(Board, size)
	for i := range b {
		b[i] = make([]int, size)
	}
	return b
}

// Clone returns a deep copy of b
func Clone(b Board) Board {
	if b == nil {
		return nil
	}
	out := make(Board, len(b))
	for i, row := range b {
		out[i] = append([]int(nil), row...)
	}
	return out
}

// Equal compares two boards cell by cell
func Equal(a, b Board) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// Cell is a board coordinate
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// EmptyCells lists empty coordinates in row-major order
func EmptyCells(b Board) []Cell {
	var cells []Cell
	for i, row := range b {
		for j, v := range row {
			if v == 0 {
				cells = append(cells, Cell{Row: i, Col: j})
			}
		}
	}
	return cells
}

// MaxTile returns the largest tile value on the board
func MaxTile(b Board) int {
	maxTile := 0
	for _, row := range b {
		for _, v := range row {
			if v > maxTile {
				maxTile = v
			}
		}
	}
	return maxTile
}

// Features encodes each cell as log2(value)/FeatureScale, row-major, zero for
// empty cells.
func Features(b Board) []float64 {
	out := make([]float64, 0, len(b)*len(b))
	for _, row := range b {
		for _, v := range row {
			if v == 0 {
				out = append(out, 0)
				continue
			}
			out = append(out, float64(Log2(v))/FeatureScale)
		}
	}
	return out
}

// Log2 returns the exponent of a power-of-two tile, 0 for empty cells
func Log2(v int) int {
	if v <= 0 {
		return 0
	}
	return bits.TrailingZeros(uint(v))
}
