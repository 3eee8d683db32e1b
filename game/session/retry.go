package session

import (
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/game2048/game/service"
)

// RetryingPersistence retries failed writes of the wrapped store with
// exponential backoff. Reads pass straight through.
type RetryingPersistence struct {
	SessionPersistence
	attempts uint
	delay    time.Duration
}

// NewRetryingPersistence wraps p. attempts of zero means a single try.
func NewRetryingPersistence(p SessionPersistence, attempts uint, delay time.Duration) *RetryingPersistence {
	if attempts == 0 {
		attempts = 1
	}
	return &RetryingPersistence{SessionPersistence: p, attempts: attempts, delay: delay}
}

// Save retries the underlying Save
func (rp *RetryingPersistence) Save(session *service.Session) error {
	return rp.do("save", session.ID, func() error {
		return rp.SessionPersistence.Save(session)
	})
}

// Delete retries the underlying Delete. A missing session is not retried.
func (rp *RetryingPersistence) Delete(id string) error {
	return rp.do("delete", id, func() error {
		return rp.SessionPersistence.Delete(id)
	})
}

// PruneBefore forwards to the wrapped store. Stores without bulk pruning
// report nothing removed.
func (rp *RetryingPersistence) PruneBefore(cutoff time.Time) (int64, error) {
	pruner, ok := rp.SessionPersistence.(Pruner)
	if !ok {
		return 0, nil
	}
	return pruner.PruneBefore(cutoff)
}

func (rp *RetryingPersistence) do(op, id string, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(rp.attempts),
		retry.Delay(rp.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrSessionNotFound)
		}),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Warn().Err(err).Uint("n", n).Str("op", op).Str("session", id).Msg("retrying session store")
			return retry.BackOffDelay(n, err, config)
		}),
	)
}
