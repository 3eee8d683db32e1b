package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/service"
	"github.com/wricardo/game2048/game/undo"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles game session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	configs     service.ConfigManager
	undoDepth   int
	newSource   func() engine.RandomSource
	mu          sync.RWMutex
}

// Option customizes a Manager
type Option func(*Manager)

// WithUndoDepth sets how many moves each session can take back
func WithUndoDepth(depth int) Option {
	return func(m *Manager) { m.undoDepth = depth }
}

// WithRandomSource sets the factory for each new engine's random source
func WithRandomSource(fn func() engine.RandomSource) Option {
	return func(m *Manager) { m.newSource = fn }
}

// WithConfigs lets persisted sessions that only carry a variant name find
// their rules again
func WithConfigs(configs service.ConfigManager) Option {
	return func(m *Manager) { m.configs = configs }
}

// NewManager creates a new in-memory session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*service.Session),
		undoDepth: undo.DefaultDepth,
		newSource: engine.DefaultSource,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...Option) *Manager {
	m := NewManager(opts...)
	m.persistence = persistence
	return m
}

// Create creates a new session with the given ID and rules. An empty id gets
// a generated one, a nil config the classic rules.
func (m *Manager) Create(id, configID string, config *engine.Config) (*service.Session, error) {
	if config == nil {
		def := engine.DefaultConfig()
		config = &def
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	}
	if strings.ContainsAny(id, `/\. `) {
		return nil, ErrInvalidSessionID
	}

	if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(*config, engine.WithRandom(m.newSource()))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         config,
		Undo:           undo.New(m.undoDepth),
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[strings.ToLower(id)] = sess

	if m.persistence != nil {
		if err := m.persistence.Save(sess); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("failed to persist session")
		}
	}

	log.Debug().Str("session", id).Str("config", configID).Msg("session created")
	return sess, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return sess, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		data, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted session: %w", err)
		}
		sess, err := m.restore(data)
		if err != nil {
			return nil, fmt.Errorf("failed to restore persisted session: %w", err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		// Another caller may have restored it meanwhile
		if existing, ok := m.sessions[strings.ToLower(id)]; ok {
			return existing, nil
		}
		m.sessions[strings.ToLower(id)] = sess
		return sess, nil
	}

	return nil, ErrSessionNotFound
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id, configID string, config *engine.Config) (*service.Session, error) {
	sess, err := m.Get(id)
	if err == nil {
		return sess, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, configID, config)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}

	return result
}

// Delete removes a session from memory and storage
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	_, inMemory := m.sessions[lowerID]
	delete(m.sessions, lowerID)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session. The
// caller must not hold the session lock.
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	sess.Lock()
	sess.LastAccessedAt = time.Now()
	sess.Unlock()
	return nil
}

// Save writes a specific session to persistence. It is a no-op without one.
// Callers hold the session lock.
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.persistence.Save(sess)
}

// CleanupExpiredSessions drops sessions idle for longer than maxAge from
// memory. Persisted copies stay on disk and are reloaded on demand.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	// m.mu is never held while waiting on a session lock
	var expired []*service.Session
	for _, sess := range m.List() {
		sess.Lock()
		if sess.LastAccessedAt.Before(cutoff) {
			expired = append(expired, sess)
		}
		sess.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, sess := range expired {
		key := strings.ToLower(sess.ID)
		if m.sessions[key] == sess {
			delete(m.sessions, key)
			removed++
		}
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("expired sessions evicted")
	}
	return removed
}

// PruneStored deletes persisted sessions not accessed within maxAge from
// stores that support it, and returns how many were removed
func (m *Manager) PruneStored(maxAge time.Duration) (int64, error) {
	pruner, ok := m.persistence.(Pruner)
	if !ok || maxAge <= 0 {
		return 0, nil
	}
	removed, err := pruner.PruneBefore(time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Dur("max_age", maxAge).Msg("stale stored sessions pruned")
	}
	return removed, nil
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions loads all persisted sessions into memory. Records
// that fail to load or validate are skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessionIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range sessionIDs {
		if _, exists := m.sessions[strings.ToLower(id)]; exists {
			continue
		}

		data, err := m.persistence.Load(id)
		if err != nil {
			log.Warn().Err(err).Str("session", id).Msg("failed to load persisted session")
			continue
		}
		sess, err := m.restore(data)
		if err != nil {
			log.Warn().Err(err).Str("session", id).Msg("skipping invalid persisted session")
			continue
		}

		m.sessions[strings.ToLower(id)] = sess
		loadedCount++
	}

	if loadedCount > 0 {
		log.Info().Int("count", loadedCount).Msg("loaded persisted sessions")
	}

	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	sessions := m.List()

	errorCount := 0
	for _, sess := range sessions {
		sess.Lock()
		err := m.persistence.Save(sess)
		sess.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("failed to save session")
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d sessions", errorCount)
	}

	return nil
}

// restore rebuilds a live session from its stored form
func (m *Manager) restore(data *PersistedSessionData) (*service.Session, error) {
	config := data.Config
	if config == nil && m.configs != nil && data.ConfigName != "" {
		if loaded, err := m.configs.LoadConfig(data.ConfigName); err == nil {
			config = loaded
		}
	}
	if config == nil {
		def := engine.DefaultConfig()
		config = &def
	}

	if err := data.validate(config.Size); err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(*config, engine.WithRandom(m.newSource()))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := eng.SetState(data.Game.Board, data.Game.Score); err != nil {
		return nil, err
	}

	stack := undo.New(m.undoDepth)
	stack.Restore(data.Undo)

	sess := &service.Session{
		ID:             data.ID,
		ConfigID:       data.ConfigName,
		Engine:         eng,
		Config:         config,
		Undo:           stack,
		Best:           data.Game.Best,
		History:        data.History,
		TotalMoves:     data.TotalMoves,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}
	sess.RaiseBest()
	return sess, nil
}

// generateSessionID returns a random 4-character hex ID not yet in use.
// Callers hold m.mu.
func (m *Manager) generateSessionID() string {
	for {
		id := hex.EncodeToString(frand.Bytes(2))
		if !m.sessionExists(id) {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
