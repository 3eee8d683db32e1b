package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/save"
	"github.com/wricardo/game2048/game/undo"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrNothingToUndo   = errors.New("nothing to undo")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error)
	Undo(ctx context.Context, sessionID string) (*GameState, error)
	NewGame(ctx context.Context, sessionID string) (*GameState, error)
	Autoplay(ctx context.Context, sessionID, strategy string, steps int) (*BulkMoveResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Import / Export
	Export(ctx context.Context, sessionID string) (*save.Record, error)
	Import(ctx context.Context, sessionID string, data []byte, format save.Format) (*GameState, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.Config) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.Config) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles rule variant loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Config, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.Config
}

// Observer receives every event a service emits, after the state change has
// been applied. Observers must not block.
type Observer interface {
	OnEvent(ctx context.Context, event GameEvent)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, event GameEvent)

func (f ObserverFunc) OnEvent(ctx context.Context, event GameEvent) { f(ctx, event) }

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.Config
	Undo           *undo.Stack
	Best           int
	History        []MoveHistoryEntry
	TotalMoves     int
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu sync.Mutex
}

// Lock serializes access to one session. Every field above is read and
// written under it once the session is shared.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session lock
func (s *Session) Unlock() { s.mu.Unlock() }

// RaiseBest lifts Best to the current score when it is exceeded
func (s *Session) RaiseBest() bool {
	if score := s.Engine.Score(); score > s.Best {
		s.Best = score
		return true
	}
	return false
}
