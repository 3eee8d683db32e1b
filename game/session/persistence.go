package session

import (
	"fmt"
	"time"

	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/save"
	"github.com/wricardo/game2048/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves persisted session data by ID
	Load(id string) (*PersistedSessionData, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// Pruner is implemented by stores that can drop stale records in bulk
type Pruner interface {
	PruneBefore(cutoff time.Time) (int64, error)
}

// PersistedSessionData is the stored form of a session. Game holds the same
// {board, score, best} record used for export.
type PersistedSessionData struct {
	ID             string                     `json:"id"`
	ConfigName     string                     `json:"config_name"`
	Config         *engine.Config             `json:"config,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	LastAccessedAt time.Time                  `json:"last_accessed_at"`
	Game           save.Record                `json:"game"`
	Undo           []engine.Snapshot          `json:"undo,omitempty"`
	History        []service.MoveHistoryEntry `json:"history,omitempty"`
	TotalMoves     int                        `json:"total_moves"`
}

// Snapshot captures everything needed to rebuild sess. Callers hold the
// session lock once sess is shared.
func Snapshot(sess *service.Session) *PersistedSessionData {
	data := &PersistedSessionData{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		Config:         sess.Config,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Game:           save.FromEngine(sess.Engine, sess.Best),
		History:        sess.History,
		TotalMoves:     sess.TotalMoves,
	}
	if sess.Undo != nil {
		data.Undo = sess.Undo.Entries()
	}
	return data
}

// validate rejects records whose board does not fit their rules
func (d *PersistedSessionData) validate(size int) error {
	if d.Game.Board == nil {
		return fmt.Errorf("%w: missing board", save.ErrInvalidFile)
	}
	if err := engine.ValidateBoard(d.Game.Board, size); err != nil {
		return fmt.Errorf("%w: %v", save.ErrInvalidFile, err)
	}
	return nil
}
