// Package autoplay picks moves for a 2048 board without a human player.
//
// Three strategies are available: random picks any move that changes the
// board, greedy takes the largest immediate merge gain, and expectimax
// searches a few plies ahead over move and spawn nodes using a line
// heuristic (empty cells, merges, monotonicity, tile mass).
package autoplay

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/wricardo/game2048/game/engine"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy chooses the next move. ok is false when no move changes the board.
type Strategy interface {
	Name() string
	NextMove(b engine.Board) (dir engine.Direction, ok bool)
}

// Option tunes a strategy to the rules it plays under
type Option func(*options)

type options struct {
	fourProbability float64
}

// WithFourProbability sets the chance that a spawned tile is a 4. Values
// outside [0, 1] keep the classic probability.
func WithFourProbability(p float64) Option {
	return func(o *options) {
		if p >= 0 && p <= 1 {
			o.fourProbability = p
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{fourProbability: engine.DefaultFourProbability}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var registry = map[string]func(rng engine.RandomSource, opts []Option) Strategy{
	"random":     func(rng engine.RandomSource, _ []Option) Strategy { return NewRandom(rng) },
	"greedy":     func(engine.RandomSource, []Option) Strategy { return NewGreedy() },
	"expectimax": func(_ engine.RandomSource, opts []Option) Strategy { return NewExpectimax(0, opts...) },
}

// DefaultStrategy is used when no name is given
const DefaultStrategy = "expectimax"

// New builds a strategy by name. rng is only used by the random strategy and
// may be nil.
func New(name string, rng engine.RandomSource, opts ...Option) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultStrategy
	}
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
	if rng == nil {
		rng = engine.DefaultSource()
	}
	return build(rng, opts), nil
}

// Names lists the registered strategies
func Names() []string {
	names := lo.Keys(registry)
	sort.Strings(names)
	return names
}

// candidate is a move that changes the board
type candidate struct {
	dir   engine.Direction
	board engine.Board
	gain  int
}

// legalMoves slides b in every direction and keeps the ones that change it,
// in engine.Directions order.
func legalMoves(b engine.Board) []candidate {
	all := lo.Map(engine.Directions, func(d engine.Direction, _ int) candidate {
		next, gain, changed, _ := engine.Slide(b, d)
		if !changed {
			return candidate{}
		}
		return candidate{dir: d, board: next, gain: gain}
	})
	return lo.Filter(all, func(c candidate, _ int) bool {
		return c.board != nil
	})
}

// Random picks uniformly among moves that change the board
type Random struct {
	rng engine.RandomSource
}

func NewRandom(rng engine.RandomSource) *Random {
	if rng == nil {
		rng = engine.DefaultSource()
	}
	return &Random{rng: rng}
}

func (r *Random) Name() string { return "random" }

func (r *Random) NextMove(b engine.Board) (engine.Direction, bool) {
	moves := legalMoves(b)
	if len(moves) == 0 {
		return "", false
	}
	return moves[r.rng.Intn(len(moves))].dir, true
}

// Greedy maximizes the immediate merge gain, breaking ties by the number of
// empty cells left and then by direction order.
type Greedy struct{}

func NewGreedy() *Greedy { return &Greedy{} }

func (g *Greedy) Name() string { return "greedy" }

func (g *Greedy) NextMove(b engine.Board) (engine.Direction, bool) {
	moves := legalMoves(b)
	if len(moves) == 0 {
		return "", false
	}
	best := lo.MaxBy(moves, func(a, cur candidate) bool {
		if a.gain != cur.gain {
			return a.gain > cur.gain
		}
		return len(engine.EmptyCells(a.board)) > len(engine.EmptyCells(cur.board))
	})
	return best.dir, true
}
