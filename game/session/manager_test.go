package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/game2048/game/engine"
)

func seeded() engine.RandomSource { return engine.NewSeededSource(7) }

func newTestManager(opts ...Option) *Manager {
	return NewManager(append([]Option{WithRandomSource(seeded)}, opts...)...)
}

func TestManagerCreate(t *testing.T) {
	m := newTestManager()

	t.Run("generated id", func(t *testing.T) {
		sess, err := m.Create("", "classic", nil)
		require.NoError(t, err)
		assert.Len(t, sess.ID, 4)
		assert.Equal(t, "classic", sess.ConfigID)
		assert.Equal(t, engine.DefaultSize, sess.Engine.Size())
		assert.Equal(t, 6, sess.Undo.Depth())
		assert.Len(t, engine.EmptyCells(sess.Engine.Board()), 14)
	})

	t.Run("explicit id", func(t *testing.T) {
		sess, err := m.Create("MyGame", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "MyGame", sess.ID)
	})

	t.Run("duplicate is case-insensitive", func(t *testing.T) {
		_, err := m.Create("mygame", "", nil)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("path characters rejected", func(t *testing.T) {
		_, err := m.Create("../etc", "", nil)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})

	t.Run("invalid rules", func(t *testing.T) {
		_, err := m.Create("bad", "", &engine.Config{Size: 1})
		assert.ErrorIs(t, err, engine.ErrInvalidConfig)
	})

	t.Run("custom rules", func(t *testing.T) {
		cfg := engine.Config{Name: "Tiny", Size: 3, StartTiles: 1}
		sess, err := m.Create("tiny", "tiny", &cfg)
		require.NoError(t, err)
		assert.Equal(t, 3, sess.Engine.Size())
		assert.Len(t, engine.EmptyCells(sess.Engine.Board()), 8)
	})
}

func TestManagerUndoDepth(t *testing.T) {
	m := newTestManager(WithUndoDepth(2))
	sess, err := m.Create("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Undo.Depth())
}

func TestManagerGet(t *testing.T) {
	m := newTestManager()
	created, err := m.Create("AbCd", "", nil)
	require.NoError(t, err)

	for _, id := range []string{"AbCd", "abcd", "ABCD"} {
		got, err := m.Get(id)
		require.NoError(t, err, id)
		assert.Same(t, created, got)
	}

	_, err = m.Get("zzzz")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerGetOrCreate(t *testing.T) {
	m := newTestManager()

	first, err := m.GetOrCreate("one", "classic", nil)
	require.NoError(t, err)
	second, err := m.GetOrCreate("ONE", "classic", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Count())
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager()
	_, err := m.Create("gone", "", nil)
	require.NoError(t, err)

	require.NoError(t, m.Delete("GONE"))
	assert.Equal(t, 0, m.Count())
	assert.ErrorIs(t, m.Delete("gone"), ErrSessionNotFound)
	assert.ErrorIs(t, m.DeleteFromMemory("gone"), ErrSessionNotFound)
}

func TestManagerCleanupExpiredSessions(t *testing.T) {
	m := newTestManager()
	old, err := m.Create("old", "", nil)
	require.NoError(t, err)
	_, err = m.Create("fresh", "", nil)
	require.NoError(t, err)

	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	assert.Equal(t, 1, m.CleanupExpiredSessions(time.Hour))
	_, err = m.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get("fresh")
	assert.NoError(t, err)
}

func TestManagerConcurrentTouchAndCleanup(t *testing.T) {
	m := newTestManager()
	for i := 0; i < 8; i++ {
		_, err := m.Create(fmt.Sprintf("s%d", i), "", nil)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			for i := 0; i < 8; i++ {
				assert.NoError(t, m.UpdateLastAccessed(fmt.Sprintf("s%d", i)))
			}
		}
	}()
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			assert.Zero(t, m.CleanupExpiredSessions(time.Hour))
		}
	}()
	wg.Wait()
	assert.Equal(t, 8, m.Count())
}

func TestManagerUpdateLastAccessed(t *testing.T) {
	m := newTestManager()
	sess, err := m.Create("touch", "", nil)
	require.NoError(t, err)
	before := sess.LastAccessedAt

	time.Sleep(time.Millisecond)
	require.NoError(t, m.UpdateLastAccessed("TOUCH"))
	assert.True(t, sess.LastAccessedAt.After(before))
	assert.ErrorIs(t, m.UpdateLastAccessed("nope"), ErrSessionNotFound)
}

func TestManagerSaveWithoutPersistence(t *testing.T) {
	m := newTestManager()
	assert.NoError(t, m.Save("anything"))
	assert.NoError(t, m.SaveAllSessions())
	assert.NoError(t, m.LoadPersistedSessions())
}

func TestManagerConcurrentCreate(t *testing.T) {
	m := newTestManager()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Create(fmt.Sprintf("s%02d", i), "", nil)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 50, m.Count())
	for _, sess := range m.List() {
		assert.True(t, strings.HasPrefix(sess.ID, "s"))
	}
}
