package autoplay

import (
	"context"
	"encoding/binary"
	"math/bits"

	"github.com/cespare/xxhash"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/game2048/game/engine"
)

const (
	probThreshold   = 0.0001
	cacheDepthLimit = 15
	minDepth        = 3
	maxDepth        = 8
)

// Expectimax searches move nodes (max) and spawn nodes (expectation) to a
// depth that grows with the number of distinct tiles on the board.
type Expectimax struct {
	depth int
	four  float64
}

// NewExpectimax returns a searcher with a fixed depth, or an adaptive one
// when depth is zero. Chance nodes weigh spawns by WithFourProbability.
func NewExpectimax(depth int, opts ...Option) *Expectimax {
	return &Expectimax{depth: depth, four: buildOptions(opts).fourProbability}
}

func (e *Expectimax) Name() string { return "expectimax" }

type cacheEntry struct {
	depth int
	value float64
}

// searchState is owned by a single root goroutine
type searchState struct {
	table      map[uint64]cacheEntry
	depth      int
	depthLimit int
	four       float64
	buf        []byte
}

func (e *Expectimax) NextMove(b engine.Board) (engine.Direction, bool) {
	dir, _, ok := e.score(context.Background(), b)
	return dir, ok
}

// Scores returns the expected value of each changing root move
func (e *Expectimax) Scores(ctx context.Context, b engine.Board) (map[engine.Direction]float64, error) {
	moves := legalMoves(b)
	results := make([]float64, len(moves))
	limit := e.depthLimit(b)

	g, ctx := errgroup.WithContext(ctx)
	for i, m := range moves {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			st := &searchState{
				table:      make(map[uint64]cacheEntry),
				depthLimit: limit,
				four:       e.four,
			}
			results[i] = st.chanceNode(m.board, 1.0) + 1e-6
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[engine.Direction]float64, len(moves))
	for i, m := range moves {
		out[m.dir] = results[i]
	}
	return out, nil
}

func (e *Expectimax) score(ctx context.Context, b engine.Board) (engine.Direction, float64, bool) {
	scores, err := e.Scores(ctx, b)
	if err != nil || len(scores) == 0 {
		return "", 0, false
	}
	var best engine.Direction
	bestScore := -1.0
	for _, d := range engine.Directions {
		s, ok := scores[d]
		if ok && s > bestScore {
			best, bestScore = d, s
		}
	}
	return best, bestScore, true
}

// depthLimit mirrors the distinct-tile rule: boards with more distinct large
// tiles get a deeper search.
func (e *Expectimax) depthLimit(b engine.Board) int {
	if e.depth > 0 {
		return e.depth
	}
	var seen uint32
	for _, row := range b {
		for _, v := range row {
			seen |= 1 << uint(engine.Log2(v))
		}
	}

	limit := maxDepth
	switch {
	case seen <= 2048:
		return minDepth
	case seen <= 2048+1024:
		limit = 4
	case seen <= 4096:
		limit = 5
	case seen <= 4096+2048:
		limit = 6
	case seen <= 8192:
		limit = 7
	}

	count := bits.OnesCount32(seen>>1) - 2
	if count < minDepth {
		count = minDepth
	}
	if count > limit {
		count = limit
	}
	return count
}

func (st *searchState) key(b engine.Board) uint64 {
	st.buf = st.buf[:0]
	for _, row := range b {
		for _, v := range row {
			st.buf = binary.LittleEndian.AppendUint32(st.buf, uint32(v))
		}
	}
	return xxhash.Sum64(st.buf)
}

// chanceNode averages over every empty cell receiving a 2 or a 4
func (st *searchState) chanceNode(b engine.Board, prob float64) float64 {
	if prob < probThreshold || st.depth >= st.depthLimit {
		return Evaluate(b)
	}

	var key uint64
	if st.depth < cacheDepthLimit {
		key = st.key(b)
		if entry, ok := st.table[key]; ok && entry.depth <= st.depth {
			return entry.value
		}
	}

	empty := engine.EmptyCells(b)
	if len(empty) == 0 {
		return Evaluate(b)
	}
	open := float64(len(empty))
	prob /= open

	total := 0.0
	for _, c := range empty {
		if st.four < 1 {
			b[c.Row][c.Col] = 2
			total += st.moveNode(b, prob*(1-st.four)) * (1 - st.four)
		}
		if st.four > 0 {
			b[c.Row][c.Col] = 4
			total += st.moveNode(b, prob*st.four) * st.four
		}
		b[c.Row][c.Col] = 0
	}
	value := total / open

	if st.depth < cacheDepthLimit {
		st.table[key] = cacheEntry{depth: st.depth, value: value}
	}
	return value
}

// moveNode takes the best changing move, zero when none exists
func (st *searchState) moveNode(b engine.Board, prob float64) float64 {
	best := 0.0
	st.depth++
	for _, d := range engine.Directions {
		next, _, changed, _ := engine.Slide(b, d)
		if !changed {
			continue
		}
		if v := st.chanceNode(next, prob); v > best {
			best = v
		}
	}
	st.depth--
	return best
}
