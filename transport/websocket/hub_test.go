package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/service"
)

func newClient(hub *Hub, sessionID string) *Client {
	return &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	c1 := newClient(hub, "abcd")
	c2 := newClient(hub, "abcd")

	hub.registerClient(c1)
	hub.registerClient(c2)
	assert.Equal(t, 2, hub.ClientCount("ABCD"))

	hub.unregisterClient(c1)
	assert.Equal(t, 1, hub.ClientCount("abcd"))
	assert.True(t, hub.sessions["abcd"][c2])

	hub.unregisterClient(c2)
	_, exists := hub.sessions["abcd"]
	assert.False(t, exists, "empty sessions are cleaned up")

	// A second unregister is harmless
	hub.unregisterClient(c2)
}

func TestHubBroadcastToSession(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, "abcd")
	other := newClient(hub, "zzzz")
	hub.registerClient(c)
	hub.registerClient(other)

	state := &service.GameState{
		Board: engine.Board{{2, 0}, {0, 4}},
		Size:  2,
		Score: 100,
	}
	hub.BroadcastToSession("AbCd", state)

	msg := receive(t, c)
	assert.Equal(t, "AbCd", msg.SessionID)
	assert.Equal(t, EventStateUpdate, msg.Event)
	require.NotNil(t, msg.GameState)
	assert.Equal(t, 100, msg.GameState.Score)
	assert.Equal(t, state.Board, msg.GameState.Board)

	assert.Empty(t, other.send)
}

func TestHubOnEvent(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.RunContext(ctx)

	c := newClient(hub, "abcd")
	hub.register <- c

	hub.OnEvent(ctx, service.GameEvent{Type: service.EventNewBest, SessionID: "abcd", Best: 2048})

	msg := receive(t, c)
	assert.Equal(t, service.EventNewBest, msg.Event)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2048, data["best"])
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, sessionID: "slow", send: make(chan []byte)}
	hub.registerClient(c)

	hub.BroadcastToSession("slow", &service.GameState{})
	assert.Equal(t, 0, hub.ClientCount("slow"))
}

func TestWebSocketRoundTrip(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.RunContext(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=ws01"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("ws01") == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastToSession("ws01", &service.GameState{Score: 200, GameOver: true})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "ws01", msg.SessionID)
	assert.Equal(t, 200, msg.GameState.Score)
	assert.True(t, msg.GameState.GameOver)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("ws01") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubStopReleasesConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.RunContext(ctx)
		close(stopped)
	}()

	served := make(chan struct{}, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, "live")
		served <- struct{}{}
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("live") == 1 }, time.Second, 5*time.Millisecond)
	<-served

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub loop did not stop")
	}
	assert.Equal(t, 0, hub.ClientCount("live"))

	// the open connection is closed by the server
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	// a late connection does not wait on the stopped loop
	late, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer late.Close()
	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("ServeWS blocked after the hub stopped")
	}
	assert.Equal(t, 0, hub.ClientCount("live"))
}
