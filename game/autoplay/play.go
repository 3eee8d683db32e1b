package autoplay

import (
	"context"
	"fmt"

	"github.com/wricardo/game2048/game/engine"
)

// GameSummary describes a finished (or interrupted) auto-played game
type GameSummary struct {
	Strategy string `json:"strategy"`
	Score    int    `json:"score"`
	MaxTile  int    `json:"max_tile"`
	Moves    int    `json:"moves"`
}

// PlayGame plays a fresh game to the end, or until maxMoves moves have been
// made when maxMoves is positive. The context is checked between moves.
func PlayGame(ctx context.Context, s Strategy, cfg engine.Config, rng engine.RandomSource, maxMoves int) (GameSummary, error) {
	eng, err := engine.NewEngine(cfg, engine.WithRandom(rng))
	if err != nil {
		return GameSummary{}, err
	}
	return Play(ctx, s, eng, maxMoves)
}

// Play drives an existing engine with s
func Play(ctx context.Context, s Strategy, eng engine.Engine, maxMoves int) (GameSummary, error) {
	summary := GameSummary{Strategy: s.Name()}
	for eng.CanMove() {
		if maxMoves > 0 && summary.Moves >= maxMoves {
			break
		}
		if err := ctx.Err(); err != nil {
			return finish(summary, eng), err
		}

		dir, ok := s.NextMove(eng.Board())
		if !ok {
			break
		}
		outcome, err := eng.Move(dir)
		if err != nil {
			return finish(summary, eng), fmt.Errorf("failed to apply %s: %w", dir, err)
		}
		if !outcome.Changed {
			return finish(summary, eng), fmt.Errorf("strategy %s chose a move that changes nothing", s.Name())
		}
		summary.Moves++
	}
	return finish(summary, eng), nil
}

func finish(summary GameSummary, eng engine.Engine) GameSummary {
	summary.Score = eng.Score()
	summary.MaxTile = engine.MaxTile(eng.Board())
	return summary
}
