package autoplay

import (
	"math"

	"github.com/wricardo/game2048/game/engine"
)

// Heuristic weights for a single line of ranks (log2 of tile values)
const (
	lostPenalty        = 200000.0
	monotonicityPower  = 4.0
	monotonicityWeight = 47.0
	sumPower           = 3.5
	sumWeight          = 11.0
	mergesWeight       = 700.0
	emptyWeight        = 270.0
)

// lineScore rates one row or column
func lineScore(ranks []int) float64 {
	sum := 0.0
	empty, merges := 0, 0
	prev, counter := 0, 0

	for _, rank := range ranks {
		sum += math.Pow(float64(rank), sumPower)
		if rank == 0 {
			empty++
			continue
		}
		if prev == rank {
			counter++
		} else if counter > 0 {
			merges += 1 + counter
			counter = 0
		}
		prev = rank
	}
	if counter > 0 {
		merges += 1 + counter
	}

	monoLeft, monoRight := 0.0, 0.0
	for i := 1; i < len(ranks); i++ {
		a := math.Pow(float64(ranks[i-1]), monotonicityPower)
		b := math.Pow(float64(ranks[i]), monotonicityPower)
		if ranks[i-1] > ranks[i] {
			monoLeft += a - b
		} else {
			monoRight += b - a
		}
	}

	return lostPenalty +
		emptyWeight*float64(empty) +
		mergesWeight*float64(merges) -
		monotonicityWeight*math.Min(monoLeft, monoRight) -
		sumWeight*sum
}

// Evaluate scores a board by summing the line score of every row and column
func Evaluate(b engine.Board) float64 {
	n := len(b)
	total := 0.0
	row := make([]int, n)
	col := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			row[j] = engine.Log2(b[i][j])
			col[j] = engine.Log2(b[j][i])
		}
		total += lineScore(row) + lineScore(col)
	}
	return total
}
