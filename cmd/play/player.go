package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/wricardo/game2048/game/autoplay"
	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/i18n"
	"github.com/wricardo/game2048/game/save"
	"github.com/wricardo/game2048/game/undo"
)

var errQuit = errors.New("quit")

// player runs one local game and keeps its state file current
type player struct {
	eng       *engine.GameEngine
	rec       *undo.Recorder
	best      int
	lang      language.Tag
	statePath string
	out       io.Writer
}

func newPlayer(cfg engine.Config, depth int, statePath string, lang language.Tag, out io.Writer, opts ...engine.Option) (*player, error) {
	eng, err := engine.NewEngine(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &player{
		eng:       eng,
		rec:       undo.NewRecorder(eng, undo.New(depth)),
		lang:      lang,
		statePath: statePath,
		out:       out,
	}, nil
}

// restore loads the autosaved game. A missing file is not an error; an
// unreadable one is ignored and the fresh game kept.
func (p *player) restore() bool {
	if p.statePath == "" {
		return false
	}
	data, err := os.ReadFile(p.statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p.statePath).Msg("failed to read saved game")
		}
		return false
	}
	rec, err := save.Unmarshal(data, save.FormatFromPath(p.statePath), p.eng.Size(), 0)
	if err != nil {
		log.Warn().Err(err).Str("path", p.statePath).Msg("ignoring saved game")
		return false
	}
	p.apply(rec)
	return true
}

// autosave writes the current game to the state file
func (p *player) autosave() {
	if p.statePath == "" {
		return
	}
	data, err := save.Marshal(save.FromEngine(p.eng, p.best), save.FormatFromPath(p.statePath))
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode game")
		return
	}
	if err := writeFile(p.statePath, data); err != nil {
		log.Warn().Err(err).Str("path", p.statePath).Msg("failed to autosave")
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// apply replaces the game with an imported record and forgets the history
func (p *player) apply(rec save.Record) {
	if err := p.eng.SetState(rec.Board, rec.Score); err != nil {
		// Records are validated on decode
		log.Error().Err(err).Msg("failed to apply record")
		return
	}
	p.rec.Stack().Clear()
	p.best = max(rec.Best, rec.Score)
}

func (p *player) text(key string, args ...interface{}) string {
	return i18n.Text(p.lang, key, args...)
}

func (p *player) println(s string) {
	fmt.Fprintln(p.out, s)
}

// handle executes one command line. It returns errQuit when the player leaves.
func (p *player) handle(line string) error {
	fields, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("failed to parse command: %w", err)
	}
	if len(fields) == 0 {
		return nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "q", "quit", "exit":
		return errQuit
	case "help", "?":
		p.help()
	case "show", "board":
		p.render()
	case "u", "undo":
		p.undo()
	case "n", "new":
		p.newGame()
	case "export":
		return p.export(args)
	case "import":
		return p.importFile(args)
	case "lang":
		if len(args) == 0 {
			p.println(p.lang.String())
			return nil
		}
		p.lang = i18n.Match(args[0])
		p.println(p.text(i18n.Instructions))
	case "ai":
		return p.ai(args)
	default:
		dir, err := engine.ParseDirection(cmd)
		if err != nil {
			return fmt.Errorf("unknown command %q, type help", cmd)
		}
		p.move(dir)
	}
	return nil
}

func (p *player) help() {
	p.println(p.text(i18n.Instructions))
	p.println("  h j k l | left down up right   " + p.text(i18n.Subtitle))
	p.println("  undo                           " + p.text(i18n.Undo))
	p.println("  new                            " + p.text(i18n.NewGame))
	p.println("  export <file>                  " + p.text(i18n.Export))
	p.println("  import <file>                  " + p.text(i18n.Import))
	p.println("  ai [strategy] [moves]          " + p.text(i18n.AIPlay) + " (" + strings.Join(autoplay.Names(), ", ") + ")")
	p.println("  lang fr|en")
	p.println("  quit")
}

// move applies dir and reports whether the board changed
func (p *player) move(dir engine.Direction) bool {
	outcome, err := p.rec.Move(dir)
	if err != nil {
		p.println(err.Error())
		return false
	}
	if !outcome.Changed {
		p.println(p.text(i18n.NoMove))
		return false
	}
	if score := p.eng.Score(); score > p.best {
		p.best = score
	}
	p.autosave()
	p.render()
	if outcome.GameOver {
		p.println(p.text(i18n.GameOver))
	}
	return true
}

func (p *player) undo() {
	if _, err := p.rec.Undo(); err != nil {
		p.println(p.text(i18n.NothingUndo))
		return
	}
	p.autosave()
	p.render()
}

func (p *player) newGame() {
	p.rec.NewGame()
	p.autosave()
	p.render()
}

func (p *player) export(args []string) error {
	path := save.ExportFilename
	if len(args) > 0 {
		path = args[0]
	}
	data, err := save.Marshal(save.FromEngine(p.eng, p.best), save.FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	p.println(p.text(i18n.Export) + ": " + path)
	return nil
}

func (p *player) importFile(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}
	rec, err := save.Unmarshal(data, save.FormatFromPath(args[0]), p.eng.Size(), p.best)
	if err != nil {
		log.Debug().Err(err).Str("path", args[0]).Msg("rejected import")
		p.println(p.text(i18n.InvalidFile))
		return nil
	}
	p.apply(rec)
	p.autosave()
	p.println(p.text(i18n.Imported))
	p.render()
	return nil
}

// ai lets a strategy play. Without a move count it plays until the game ends.
func (p *player) ai(args []string) error {
	name := ""
	limit := 0
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			limit = n
			continue
		}
		name = arg
	}

	strategy, err := autoplay.New(name, nil, autoplay.WithFourProbability(p.eng.Config().FourProbability))
	if err != nil {
		return err
	}

	played := 0
	for p.eng.CanMove() && (limit <= 0 || played < limit) {
		dir, ok := strategy.NextMove(p.eng.Board())
		if !ok {
			break
		}
		outcome, err := p.rec.Move(dir)
		if err != nil {
			return err
		}
		if !outcome.Changed {
			break
		}
		played++
	}
	if score := p.eng.Score(); score > p.best {
		p.best = score
	}

	p.autosave()
	p.render()
	if !p.eng.CanMove() {
		p.println(p.text(i18n.GameOver))
	}
	return nil
}

// render draws the board, right-aligning tiles to the widest value
func (p *player) render() {
	board := p.eng.Board()
	width := len(strconv.Itoa(engine.MaxTile(board)))

	var sb strings.Builder
	for _, row := range board {
		for j, v := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			cell := "."
			if v != 0 {
				cell = strconv.Itoa(v)
			}
			sb.WriteString(strings.Repeat(" ", width-len(cell)))
			sb.WriteString(cell)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(p.text(i18n.ScoreLine, p.eng.Score(), p.best))
	p.println(sb.String())
}
