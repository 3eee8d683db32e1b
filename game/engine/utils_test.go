package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBoard(t *testing.T) {
	good := Board{
		{0, 2, 4, 8},
		{16, 32, 64, 128},
		{256, 512, 1024, 2048},
		{4096, 0, 0, 0},
	}
	assert.NoError(t, ValidateBoard(good, 4))

	tests := map[string]Board{
		"one":        {{1, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		"odd":        {{6, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		"negative":   {{-2, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		"short row":  {{0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		"three rows": {{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}},
		"nil":        nil,
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateBoard(b, 4), ErrInvalidBoard)
		})
	}
}

func TestCloneAndEqual(t *testing.T) {
	b := Board{{2, 0}, {0, 4}}
	c := Clone(b)
	assert.True(t, Equal(b, c))

	c[1][1] = 8
	assert.False(t, Equal(b, c))
	assert.Equal(t, 4, b[1][1])
	assert.Nil(t, Clone(nil))
}

func TestEmptyCellsAndMaxTile(t *testing.T) {
	b := Board{
		{2, 0},
		{0, 64},
	}
	assert.Equal(t, []Cell{{Row: 0, Col: 1}, {Row: 1, Col: 0}}, EmptyCells(b))
	assert.Equal(t, 64, MaxTile(b))
	assert.Zero(t, MaxTile(NewBoard(3)))
}

func TestFeatures(t *testing.T) {
	b := Board{
		{0, 2},
		{1024, 2048},
	}
	got := Features(b)
	assert.Len(t, got, 4)
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, 1.0/11, got[1], 1e-9)
	assert.InDelta(t, 10.0/11, got[2], 1e-9)
	assert.InDelta(t, 1.0, got[3], 1e-9)
}

func TestLog2(t *testing.T) {
	assert.Equal(t, 0, Log2(0))
	assert.Equal(t, 1, Log2(2))
	assert.Equal(t, 11, Log2(2048))
}
