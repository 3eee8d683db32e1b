package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/text/language"

	"github.com/wricardo/game2048/game/autoplay"
	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/i18n"
	"github.com/wricardo/game2048/game/save"
	"github.com/wricardo/game2048/game/undo"
)

// MaxHistory bounds the per-session move log; TotalMoves keeps counting
const MaxHistory = 1000

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	configs   ConfigManager
	observers []Observer
	lang      language.Tag
	rng       engine.RandomSource
}

// Option customizes the service
type Option func(*gameServiceImpl)

// WithObservers registers event observers
func WithObservers(observers ...Observer) Option {
	return func(s *gameServiceImpl) {
		s.observers = append(s.observers, observers...)
	}
}

// WithLanguage sets the language of state messages
func WithLanguage(tag language.Tag) Option {
	return func(s *gameServiceImpl) {
		s.lang = tag
	}
}

// WithRandom sets the source used by the random auto-play strategy
func WithRandom(rng engine.RandomSource) Option {
	return func(s *gameServiceImpl) {
		s.rng = rng
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		lang:     i18n.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given display name
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	var config *engine.Config
	var err error
	configID := strings.ToLower(strings.TrimSpace(configName))
	if configID != "" {
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					ids := lo.Map(availableConfigs, func(c *ConfigInfo, _ int) string { return c.ConfigID })
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, ids)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("session", sess.ID).Str("config", configID).Msg("session created")
	sess.Lock()
	defer sess.Unlock()
	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	return lo.Map(s.sessions.List(), func(sess *Session, _ int) *SessionInfo {
		sess.Lock()
		defer sess.Unlock()
		return s.sessionInfo(sess)
	}), nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*MoveResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (use up, down, left or right)", err, direction)
	}

	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	outcome, events, err := s.applyMove(sess, dir)
	if err != nil {
		return nil, err
	}
	s.persist(sess)
	s.notify(ctx, events)

	state := s.buildState(sess)
	log.Debug().
		Str("session", sess.ID).
		Str("direction", string(dir)).
		Bool("changed", outcome.Changed).
		Int("gain", outcome.ScoreGain).
		Int("score", state.Score).
		Msg("move")

	message := state.Message
	if !outcome.Changed && message == "" {
		message = i18n.Text(s.lang, i18n.NoMove)
	}

	return &MoveResult{
		Success:   outcome.Changed,
		Direction: string(dir),
		ScoreGain: outcome.ScoreGain,
		GameState: state,
		Message:   message,
		Events:    events,
	}, nil
}

// BulkMove executes several moves in order, stopping when the game ends
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error) {
	if len(moves) == 0 {
		return nil, fmt.Errorf("no moves provided")
	}

	dirs := make([]engine.Direction, 0, len(moves))
	for i, m := range moves {
		dir, err := engine.ParseDirection(m)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w: %q", i+1, err, m)
		}
		dirs = append(dirs, dir)
	}

	result := &BulkMoveResult{RequestedMoves: len(moves)}
	if len(dirs) > MaxBulkMoves {
		dirs = dirs[:MaxBulkMoves]
		result.Truncated = true
		result.Limit = MaxBulkMoves
	}

	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	i := 0
	err = s.run(ctx, sess, result, func(engine.Board) (engine.Direction, bool) {
		if i >= len(dirs) {
			return "", false
		}
		i++
		return dirs[i-1], true
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Autoplay lets a strategy play up to steps moves
func (s *gameServiceImpl) Autoplay(ctx context.Context, sessionID, strategy string, steps int) (*BulkMoveResult, error) {
	if _, err := autoplay.New(strategy, s.rng); err != nil {
		return nil, err
	}
	if steps <= 0 {
		steps = 1
	}

	result := &BulkMoveResult{RequestedMoves: steps}
	if steps > MaxAutoplaySteps {
		steps = MaxAutoplaySteps
		result.Truncated = true
		result.Limit = MaxAutoplaySteps
	}

	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	// The search plans with the session's own spawn odds
	strat, err := autoplay.New(strategy, s.rng, autoplay.WithFourProbability(sess.Engine.Config().FourProbability))
	if err != nil {
		return nil, err
	}
	result.Strategy = strat.Name()

	played := 0
	err = s.run(ctx, sess, result, func(b engine.Board) (engine.Direction, bool) {
		if played >= steps {
			return "", false
		}
		played++
		return strat.NextMove(b)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// run applies moves supplied by next until it declines, the game ends or ctx
// is cancelled. It fills result and persists once at the end.
func (s *gameServiceImpl) run(ctx context.Context, sess *Session, result *BulkMoveResult, next func(engine.Board) (engine.Direction, bool)) error {
	result.StartScore = sess.Engine.Score()
	result.Events = []GameEvent{}

	for {
		if !sess.Engine.CanMove() {
			result.StoppedReason = "game over"
			break
		}
		if err := ctx.Err(); err != nil {
			result.StoppedReason = err.Error()
			break
		}
		dir, ok := next(sess.Engine.Board())
		if !ok {
			break
		}
		outcome, events, err := s.applyMove(sess, dir)
		if err != nil {
			return err
		}
		result.MovesExecuted++
		if outcome.Changed {
			result.ChangedMoves++
		}
		result.Steps = append(result.Steps, StepInfo{
			Idx:       result.MovesExecuted,
			Dir:       string(dir),
			Changed:   outcome.Changed,
			ScoreGain: outcome.ScoreGain,
			Score:     sess.Engine.Score(),
			MaxTile:   engine.MaxTile(outcome.Board),
		})
		result.Events = append(result.Events, events...)
	}

	s.persist(sess)
	s.notify(ctx, result.Events)

	result.EndScore = sess.Engine.Score()
	result.ScoreDelta = result.EndScore - result.StartScore
	result.GameState = s.buildState(sess)
	result.GameOver = result.GameState.GameOver
	return nil
}

// applyMove moves the engine and keeps undo, best and history in step. Only
// a move that changed the board is pushed onto the undo stack.
func (s *gameServiceImpl) applyMove(sess *Session, dir engine.Direction) (engine.MoveOutcome, []GameEvent, error) {
	before := sess.Engine.Snapshot()
	outcome, err := sess.Engine.Move(dir)
	if err != nil {
		return outcome, nil, err
	}

	var events []GameEvent
	if outcome.Changed {
		sess.Undo.Push(before)
		events = append(events, s.event(sess, EventMove, string(dir), outcome.ScoreGain, ""))
		if sess.RaiseBest() {
			events = append(events, s.event(sess, EventNewBest, "", 0, i18n.Text(s.lang, i18n.NewBest, sess.Best)))
		}
	} else {
		events = append(events, s.event(sess, EventNoMove, string(dir), 0, i18n.Text(s.lang, i18n.NoMove)))
	}
	if outcome.GameOver {
		events = append(events, s.event(sess, EventGameOver, "", 0, i18n.Text(s.lang, i18n.GameOver)))
	}

	sess.TotalMoves++
	sess.History = append(sess.History, MoveHistoryEntry{
		Direction:  string(dir),
		Changed:    outcome.Changed,
		ScoreGain:  outcome.ScoreGain,
		Score:      sess.Engine.Score(),
		MaxTile:    engine.MaxTile(outcome.Board),
		Timestamp:  time.Now().Unix(),
		MoveNumber: sess.TotalMoves,
	})
	if len(sess.History) > MaxHistory {
		sess.History = sess.History[len(sess.History)-MaxHistory:]
	}
	return outcome, events, nil
}

// Undo restores the state from before the last board-changing move
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*GameState, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	snap, err := sess.Undo.Pop()
	if err != nil {
		if errors.Is(err, undo.ErrEmpty) {
			return nil, ErrNothingToUndo
		}
		return nil, err
	}
	if err := sess.Engine.SetState(snap.Board, snap.Score); err != nil {
		return nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}

	s.persist(sess)
	s.notify(ctx, []GameEvent{s.event(sess, EventUndo, "", 0, "")})
	return s.buildState(sess), nil
}

// NewGame starts a fresh game in the session. Best score survives.
func (s *gameServiceImpl) NewGame(ctx context.Context, sessionID string) (*GameState, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	sess.Engine.NewGame()
	sess.Undo.Clear()

	s.persist(sess)
	s.notify(ctx, []GameEvent{s.event(sess, EventNewGame, "", 0, "")})
	return s.buildState(sess), nil
}

// GetGameState returns the current state of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*GameState, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	return s.buildState(sess), nil
}

// GetMoveHistory retrieves paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.Lock()
	defer sess.Unlock()

	history := sess.History
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// Export returns the session's record
func (s *gameServiceImpl) Export(ctx context.Context, sessionID string) (*save.Record, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	rec := save.FromEngine(sess.Engine, sess.Best)
	return &rec, nil
}

// Import replaces the session's game with a decoded record. Nothing changes
// when the payload is rejected.
func (s *gameServiceImpl) Import(ctx context.Context, sessionID string, data []byte, format save.Format) (*GameState, error) {
	sess, err := s.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	rec, err := save.Unmarshal(data, format, sess.Engine.Size(), sess.Best)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.SetState(rec.Board, rec.Score); err != nil {
		return nil, fmt.Errorf("%w: %v", save.ErrInvalidFile, err)
	}
	sess.Best = rec.Best
	sess.RaiseBest()
	sess.Undo.Clear()

	s.persist(sess)
	s.notify(ctx, []GameEvent{s.event(sess, EventImport, "", 0, i18n.Text(s.lang, i18n.Imported))})
	return s.buildState(sess), nil
}

// ListConfigs returns all available rule variants
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// acquire looks a session up, records the access and returns it locked.
// Callers unlock.
func (s *gameServiceImpl) acquire(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.touch(sessionID)
	sess.Lock()
	return sess, nil
}

// touch must run without the session lock held
func (s *gameServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		log.Debug().Err(err).Str("session", sessionID).Msg("failed to update last access")
	}
}

// persist autosaves under the session lock; a failing sink never fails the
// game operation
func (s *gameServiceImpl) persist(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("failed to persist session")
	}
}

func (s *gameServiceImpl) notify(ctx context.Context, events []GameEvent) {
	for _, ev := range events {
		for _, o := range s.observers {
			o.OnEvent(ctx, ev)
		}
	}
}

func (s *gameServiceImpl) event(sess *Session, kind, dir string, gain int, msg string) GameEvent {
	return GameEvent{
		Type:      kind,
		SessionID: sess.ID,
		Message:   msg,
		Timestamp: time.Now(),
		Direction: dir,
		ScoreGain: gain,
		Score:     sess.Engine.Score(),
		Best:      sess.Best,
		MaxTile:   engine.MaxTile(sess.Engine.Board()),
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      s.buildState(sess),
		GameConfig:     sess.Config,
	}
}

func (s *gameServiceImpl) buildState(sess *Session) *GameState {
	board := sess.Engine.Board()
	possible := lo.FilterMap(engine.Directions, func(d engine.Direction, _ int) (string, bool) {
		_, _, changed, _ := engine.Slide(board, d)
		return string(d), changed
	})

	state := &GameState{
		Board:         board,
		Size:          sess.Engine.Size(),
		Score:         sess.Engine.Score(),
		Best:          sess.Best,
		MaxTile:       engine.MaxTile(board),
		EmptyCells:    len(engine.EmptyCells(board)),
		GameOver:      !sess.Engine.CanMove(),
		CanUndo:       sess.Undo.Len() > 0,
		UndoDepth:     sess.Undo.Len(),
		TotalMoves:    sess.TotalMoves,
		PossibleMoves: possible,
	}
	if state.GameOver {
		state.Message = i18n.Text(s.lang, i18n.GameOver)
	}
	return state
}
