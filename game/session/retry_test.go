package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/game2048/game/service"
)

type flakyStore struct {
	SessionPersistence
	failures int
	saves    int
	deletes  int
}

func (f *flakyStore) Save(*service.Session) error {
	f.saves++
	if f.saves <= f.failures {
		return errors.New("disk busy")
	}
	return nil
}

func (f *flakyStore) Delete(string) error {
	f.deletes++
	return ErrSessionNotFound
}

func TestRetryingPersistence(t *testing.T) {
	sess, err := newTestManager().Create("r", "", nil)
	require.NoError(t, err)

	t.Run("recovers from transient failures", func(t *testing.T) {
		store := &flakyStore{failures: 2}
		rp := NewRetryingPersistence(store, 3, 0)
		assert.NoError(t, rp.Save(sess))
		assert.Equal(t, 3, store.saves)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		store := &flakyStore{failures: 5}
		rp := NewRetryingPersistence(store, 2, 0)
		assert.EqualError(t, rp.Save(sess), "disk busy")
		assert.Equal(t, 2, store.saves)
	})

	t.Run("pruning needs a store that supports it", func(t *testing.T) {
		rp := NewRetryingPersistence(&flakyStore{}, 1, 0)
		n, err := rp.PruneBefore(time.Now())
		assert.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("missing sessions are not retried", func(t *testing.T) {
		store := &flakyStore{}
		rp := NewRetryingPersistence(store, 4, 0)
		assert.ErrorIs(t, rp.Delete("r"), ErrSessionNotFound)
		assert.Equal(t, 1, store.deletes)
	})
}
