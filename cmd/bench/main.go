// Command bench measures auto-player strategies.
//
// The local command plays games in-process on a worker pool. The remote
// command drives a running server through its REST API, one session per game,
// and with --follow tallies the game events the server publishes on NATS.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/game2048/game/autoplay"
	"github.com/wricardo/game2048/game/engine"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Value:   autoplay.DefaultStrategy,
			Usage:   "auto-player strategy (" + strings.Join(autoplay.Names(), ", ") + ")",
		},
		&cli.IntFlag{
			Name:    "games",
			Aliases: []string{"n"},
			Value:   100,
			Usage:   "number of games to play",
		},
		&cli.IntFlag{
			Name:  "max-moves",
			Usage: "stop each game after this many moves (0 = play to the end)",
		},
		&cli.IntFlag{
			Name:  "bins",
			Value: 12,
			Usage: "score histogram bins",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log every finished game",
		},
	}
}

func setupLogging(cmd *cli.Command) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cmd.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func baseOptions(cmd *cli.Command) options {
	return options{
		Strategy: cmd.String("strategy"),
		Games:    cmd.Int("games"),
		MaxMoves: cmd.Int("max-moves"),
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "benchmark 2048 auto-player strategies",
		Commands: []*cli.Command{
			{
				Name:  "local",
				Usage: "play games in-process",
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Value:   runtime.NumCPU(),
						Usage:   "games played in parallel",
					},
					&cli.IntFlag{
						Name:  "size",
						Value: engine.DefaultSize,
						Usage: "board size",
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "base seed for reproducible runs (0 = random)",
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					setupLogging(cmd)
					opts := baseOptions(cmd)
					opts.Workers = cmd.Int("workers")
					opts.Seed = cmd.Int64("seed")
					opts.Config = engine.DefaultConfig()
					opts.Config.Size = cmd.Int("size")

					report, err := runLocal(ctx, opts)
					if err != nil {
						return err
					}
					return writeReport(cmd.Root().Writer, report, cmd.Int("bins"))
				},
			},
			{
				Name:  "remote",
				Usage: "play games through a running server",
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "url",
						Value: "http://localhost:8080",
						Usage: "game server URL",
					},
					&cli.StringFlag{
						Name:  "variant",
						Usage: "rule variant (server default when empty)",
					},
					&cli.BoolFlag{
						Name:  "keep",
						Usage: "keep the sessions after playing",
					},
					&cli.BoolFlag{
						Name:  "follow",
						Usage: "follow the server's game events on NATS while playing",
					},
					&cli.StringFlag{
						Name:  "nats",
						Value: nats.DefaultURL,
						Usage: "NATS URL used by --follow",
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					setupLogging(cmd)
					log.Info().Str("url", cmd.String("url")).Msg("connecting to game server")

					var f *follower
					stop := func() {}
					if cmd.Bool("follow") {
						var err error
						f, stop, err = followNATS(cmd.String("nats"))
						if err != nil {
							return err
						}
					}

					report, err := runRemote(ctx, cmd.String("url"), cmd.String("variant"), baseOptions(cmd), cmd.Bool("keep"))
					stop()
					if err != nil {
						return err
					}
					if err := writeReport(cmd.Root().Writer, report, cmd.Int("bins")); err != nil {
						return err
					}
					if f != nil {
						return writeEventCounts(cmd.Root().Writer, f.Counts())
					}
					return nil
				},
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
