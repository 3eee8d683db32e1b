package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/wricardo/game2048/game/service"
	"github.com/wricardo/game2048/transport/events"
)

// follower tallies the events a server publishes while a remote run plays
type follower struct {
	mu     sync.Mutex
	counts map[string]int
}

func follow(sub events.Subscriber) (*follower, error) {
	f := &follower{counts: make(map[string]int)}
	if _, err := events.Subscribe(sub, "*", f.onEvent); err != nil {
		return nil, fmt.Errorf("failed to subscribe to game events: %w", err)
	}
	return f, nil
}

func (f *follower) onEvent(ev service.GameEvent) {
	f.mu.Lock()
	f.counts[ev.Type]++
	f.mu.Unlock()

	switch ev.Type {
	case service.EventNewBest, service.EventGameOver:
		log.Info().
			Str("session", ev.SessionID).
			Str("event", ev.Type).
			Int("score", ev.Score).
			Int("max_tile", ev.MaxTile).
			Msg("game event")
	}
}

func (f *follower) Counts() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Assign(f.counts)
}

// followNATS subscribes to every session's events on url. stop drains the
// connection so events already delivered are counted.
func followNATS(url string) (f *follower, stop func(), err error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(url,
		nats.Name("game2048-bench"),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	f, err = follow(nc)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	stop = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
			return
		}
		select {
		case <-closed:
		case <-time.After(5 * time.Second):
			log.Warn().Msg("timed out draining nats connection")
		}
	}
	return f, stop, nil
}

func writeEventCounts(w io.Writer, counts map[string]int) error {
	if len(counts) == 0 {
		_, err := fmt.Fprintln(w, "\nNo game events received")
		return err
	}
	kinds := lo.Keys(counts)
	sort.Strings(kinds)

	if _, err := fmt.Fprintln(w, "\nGame events:"); err != nil {
		return err
	}
	for _, kind := range kinds {
		if _, err := fmt.Fprintf(w, "  %-10s %6d\n", kind, counts[kind]); err != nil {
			return err
		}
	}
	return nil
}
