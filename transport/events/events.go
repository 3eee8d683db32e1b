// Package events publishes game events to NATS.
//
// Every service event goes to game2048.<session>.<type> as a JSON-encoded
// service.GameEvent, so external tools can follow games without polling:
//
//	nats sub 'game2048.*.new_best'
//
// Publishing is fire and forget. A failed publish is logged and the game
// carries on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/game2048/game/service"
)

// SubjectPrefix is the root of every published subject
const SubjectPrefix = "game2048"

// Publisher is the part of *nats.Conn the observer needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Observer forwards service events to a Publisher
type Observer struct {
	pub    Publisher
	prefix string
}

// NewObserver wraps pub. An empty prefix means SubjectPrefix.
func NewObserver(pub Publisher, prefix string) *Observer {
	if prefix == "" {
		prefix = SubjectPrefix
	}
	return &Observer{pub: pub, prefix: prefix}
}

// Subject returns the subject an event for sessionID of type kind goes to
func (o *Observer) Subject(sessionID, kind string) string {
	return fmt.Sprintf("%s.%s.%s", o.prefix, sanitize(sessionID), kind)
}

// OnEvent implements service.Observer
func (o *Observer) OnEvent(_ context.Context, event service.GameEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode event")
		return
	}

	subject := o.Subject(event.SessionID, event.Type)
	if err := o.pub.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

// Connect dials NATS and returns an observer on the connection. The
// returned connection must be drained by the caller.
func Connect(url string) (*Observer, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("game2048"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("publishing game events to nats")
	return NewObserver(nc, SubjectPrefix), nc, nil
}

// Subscriber is the part of *nats.Conn Subscribe needs
type Subscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Subscribe calls fn for each event published for sessionID ("*" for all)
func Subscribe(nc Subscriber, sessionID string, fn func(service.GameEvent)) (*nats.Subscription, error) {
	subject := fmt.Sprintf("%s.%s.>", SubjectPrefix, sanitize(sessionID))
	return nc.Subscribe(subject, func(m *nats.Msg) {
		var event service.GameEvent
		if err := json.Unmarshal(m.Data, &event); err != nil {
			log.Debug().Err(err).Str("subject", m.Subject).Msg("skipping undecodable event")
			return
		}
		fn(event)
	})
}

// sanitize keeps a session ID usable as a single subject token
func sanitize(id string) string {
	if id == "*" {
		return id
	}
	id = strings.ToLower(id)
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '_'
		}
		return r
	}, id)
}
