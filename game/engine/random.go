package engine

import (
	"math/rand"

	"lukechampine.com/frand"
)

// RandomSource supplies the randomness used for spawning. *rand.Rand
// satisfies it, which keeps tests deterministic.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

type cryptoSource struct{}

func (cryptoSource) Intn(n int) int   { return frand.Intn(n) }
func (cryptoSource) Float64() float64 { return frand.Float64() }

// DefaultSource returns the frand-backed source used outside tests
func DefaultSource() RandomSource {
	return cryptoSource{}
}

// NewSeededSource returns a reproducible source
func NewSeededSource(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}
