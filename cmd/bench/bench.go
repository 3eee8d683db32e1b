package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/wricardo/game2048/game/autoplay"
	"github.com/wricardo/game2048/game/engine"
)

// options control a benchmark run
type options struct {
	Strategy string
	Games    int
	Workers  int
	MaxMoves int
	Seed     int64
	Config   engine.Config
}

// Report aggregates the summaries of a benchmark run
type Report struct {
	Strategy    string
	Games       int
	MeanScore   float64
	StdDevScore float64
	MedianScore float64
	BestScore   int
	MeanMoves   float64
	MaxTiles    map[int]int
	Elapsed     time.Duration
	Summaries   []autoplay.GameSummary
}

// runLocal plays opts.Games games in-process. Game i uses seed Seed+i when a
// seed is given, so runs are reproducible.
func runLocal(ctx context.Context, opts options) (*Report, error) {
	if _, err := autoplay.New(opts.Strategy, nil); err != nil {
		return nil, err
	}
	if err := engine.ValidateConfig(opts.Config); err != nil {
		return nil, err
	}

	start := time.Now()
	summaries := make([]autoplay.GameSummary, opts.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))

	var mu sync.Mutex
	done := 0

	for i := 0; i < opts.Games; i++ {
		g.Go(func() error {
			rng := engine.DefaultSource()
			if opts.Seed != 0 {
				rng = engine.NewSeededSource(opts.Seed + int64(i))
			}
			// Strategies are not shared between goroutines
			strategy, err := autoplay.New(opts.Strategy, rng, autoplay.WithFourProbability(opts.Config.FourProbability))
			if err != nil {
				return err
			}
			summary, err := autoplay.PlayGame(ctx, strategy, opts.Config, rng, opts.MaxMoves)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			summaries[i] = summary

			mu.Lock()
			done++
			log.Debug().Int("game", i).Int("score", summary.Score).Int("max_tile", summary.MaxTile).
				Int("done", done).Int("total", opts.Games).Msg("game finished")
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarize(summaries, time.Since(start)), nil
}

// summarize computes the report statistics
func summarize(summaries []autoplay.GameSummary, elapsed time.Duration) *Report {
	r := &Report{
		Games:     len(summaries),
		Elapsed:   elapsed,
		Summaries: summaries,
		MaxTiles:  lo.CountValues(lo.Map(summaries, func(s autoplay.GameSummary, _ int) int { return s.MaxTile })),
	}
	if len(summaries) == 0 {
		return r
	}
	r.Strategy = summaries[0].Strategy

	scores := scoresOf(summaries)
	moves := lo.Map(summaries, func(s autoplay.GameSummary, _ int) float64 { return float64(s.Moves) })

	r.MeanScore, r.StdDevScore = stat.MeanStdDev(scores, nil)
	if len(scores) == 1 {
		r.StdDevScore = 0
	}
	sorted := slices.Clone(scores)
	sort.Float64s(sorted)
	r.MedianScore = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	r.BestScore = int(sorted[len(sorted)-1])
	r.MeanMoves = stat.Mean(moves, nil)
	return r
}

func scoresOf(summaries []autoplay.GameSummary) []float64 {
	return lo.Map(summaries, func(s autoplay.GameSummary, _ int) float64 { return float64(s.Score) })
}

// writeReport prints the statistics, the max-tile distribution and a score
// histogram.
func writeReport(w io.Writer, r *Report, bins int) error {
	fmt.Fprintf(w, "strategy:   %s\n", r.Strategy)
	fmt.Fprintf(w, "games:      %d in %s\n", r.Games, r.Elapsed.Round(time.Millisecond))
	if r.Games == 0 {
		return nil
	}
	fmt.Fprintf(w, "score:      mean %.1f  stddev %.1f  median %.0f  best %d\n",
		r.MeanScore, r.StdDevScore, r.MedianScore, r.BestScore)
	fmt.Fprintf(w, "moves:      mean %.1f\n", r.MeanMoves)

	fmt.Fprintln(w, "max tile:")
	tiles := lo.Keys(r.MaxTiles)
	sort.Sort(sort.Reverse(sort.IntSlice(tiles)))
	cumulative := 0
	for _, tile := range tiles {
		cumulative += r.MaxTiles[tile]
		fmt.Fprintf(w, "  %6d  %4d  %5.1f%%  (>= %5.1f%%)\n", tile, r.MaxTiles[tile],
			100*float64(r.MaxTiles[tile])/float64(r.Games),
			100*float64(cumulative)/float64(r.Games))
	}

	scores := scoresOf(r.Summaries)
	if lo.Min(scores) == lo.Max(scores) {
		return nil
	}
	fmt.Fprintln(w, "score histogram:")
	return histogram.Fprint(w, histogram.Hist(bins, scores), histogram.Linear(40))
}
