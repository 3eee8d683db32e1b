// Command play is a terminal 2048 game.
//
// Moves are typed as h j k l or direction names. The game is saved after
// every change and picked up again on the next start.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/i18n"
	"github.com/wricardo/game2048/game/undo"
)

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "2048-state.json"
	}
	return filepath.Join(home, ".game2048", "state.json")
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func main() {
	size := flag.Int("size", engine.DefaultSize, "Board size")
	depth := flag.Int("undo", undo.DefaultDepth, "Undo depth")
	statePath := flag.String("state", defaultStatePath(), "Autosave file (empty disables autosave)")
	lang := flag.String("lang", os.Getenv("LANG"), "Message language (fr or en)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := engine.DefaultConfig()
	cfg.Size = *size

	// LANG looks like fr_FR.UTF-8
	tag := i18n.Match(strings.ReplaceAll(strings.SplitN(*lang, ".", 2)[0], "_", "-"))

	p, err := newPlayer(cfg, *depth, *statePath, tag, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	p.restore()

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[33m2048>\033[0m ",
		HistoryFile:     filepath.Join(os.TempDir(), "game2048-history.tmp"),
		EOFPrompt:       "quit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start readline")
	}
	defer l.Close()
	p.out = l.Stdout()

	p.println(p.text(i18n.Instructions))
	p.render()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err == io.EOF {
			break
		}

		if err := p.handle(strings.TrimSpace(line)); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			p.println(err.Error())
		}
	}
	p.autosave()
}
