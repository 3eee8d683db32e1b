package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/game2048/api"
	"github.com/wricardo/game2048/game/config"
	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/service"
	"github.com/wricardo/game2048/game/session"
)

// newBackend runs the real REST API over an in-memory service
func newBackend(t *testing.T) (*Client, service.GameService) {
	t.Helper()
	configs, err := config.NewManager("")
	require.NoError(t, err)
	sessions := session.NewManager(session.WithRandomSource(func() engine.RandomSource {
		return engine.NewSeededSource(3)
	}))
	svc := service.NewGameService(sessions, configs, service.WithRandom(engine.NewSeededSource(4)))

	ts := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL), svc
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.GetMCPServer())
}

func TestApiCallErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		assert.Error(t, client.apiCall(context.Background(), "GET", "/api/health", nil, nil))
	})

	t.Run("error body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"session not found"}`))
		}))
		defer ts.Close()
		err := NewClient(ts.URL).apiCall(context.Background(), "GET", "/x", nil, nil)
		assert.EqualError(t, err, "session not found")
	})

	t.Run("plain status", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()
		err := NewClient(ts.URL).apiCall(context.Background(), "GET", "/x", nil, nil)
		assert.EqualError(t, err, "API error: 500")
	})
}

func TestToolsAgainstServer(t *testing.T) {
	client, svc := newBackend(t)
	ctx := context.Background()

	text, isErr := call(t, client.handleCreateSession, map[string]interface{}{})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Created session:")

	sessions, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	id := sessions[0].ID
	sid := map[string]interface{}{"session_id": id}

	t.Run("game_state", func(t *testing.T) {
		text, isErr := call(t, client.handleGameState, sid)
		require.False(t, isErr)
		assert.Contains(t, text, "Score: 0")
		assert.Contains(t, text, "Possible moves:")
		assert.Equal(t, 14, strings.Count(text, "."), text)
	})

	t.Run("move and undo", func(t *testing.T) {
		before, err := svc.GetGameState(ctx, id)
		require.NoError(t, err)

		require.NotEmpty(t, before.PossibleMoves)
		moved := before.PossibleMoves[0]

		text, isErr := call(t, client.handleMove, map[string]interface{}{"session_id": id, "direction": moved})
		require.False(t, isErr, text)
		assert.Contains(t, text, "✓ "+moved)

		text, isErr = call(t, client.handleUndo, sid)
		require.False(t, isErr, text)
		after, err := svc.GetGameState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before.Board, after.Board)

		text, isErr = call(t, client.handleUndo, sid)
		assert.True(t, isErr)
		assert.Equal(t, "Nothing to undo", text)
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, isErr := call(t, client.handleMove, map[string]interface{}{"session_id": id, "direction": "diagonal"})
		assert.True(t, isErr)
	})

	t.Run("bulk_move", func(t *testing.T) {
		text, isErr := call(t, client.handleBulkMove, map[string]interface{}{
			"session_id": id,
			"moves":      []interface{}{"left", "down", "right", "up"},
		})
		require.False(t, isErr, text)
		assert.Contains(t, text, "Executed 4/4 moves")
	})

	t.Run("autoplay_step", func(t *testing.T) {
		text, isErr := call(t, client.handleAutoplay, map[string]interface{}{
			"session_id": id,
			"strategy":   "greedy",
			"steps":      float64(3),
		})
		require.False(t, isErr, text)
		assert.Contains(t, text, "Strategy: greedy")
	})

	t.Run("export and import", func(t *testing.T) {
		exported, isErr := call(t, client.handleExport, sid)
		require.False(t, isErr, exported)
		assert.Contains(t, exported, `"board"`)

		_, isErr = call(t, client.handleNewGame, sid)
		require.False(t, isErr)

		text, isErr := call(t, client.handleImport, map[string]interface{}{"session_id": id, "data": exported})
		require.False(t, isErr, text)

		again, isErr := call(t, client.handleExport, sid)
		require.False(t, isErr)
		assert.JSONEq(t, exported, again)

		text, isErr = call(t, client.handleImport, map[string]interface{}{"session_id": id, "data": `{"score": 5}`})
		assert.True(t, isErr)
		assert.Equal(t, "Invalid file", text)
	})

	t.Run("move_history", func(t *testing.T) {
		text, isErr := call(t, client.handleMoveHistory, map[string]interface{}{"session_id": id, "limit": float64(2)})
		require.False(t, isErr, text)
		assert.Contains(t, text, "Move History (page 1/")
	})

	t.Run("list tools", func(t *testing.T) {
		text, isErr := call(t, client.handleListSessions, nil)
		require.False(t, isErr)
		assert.Contains(t, text, id)

		text, isErr = call(t, client.handleListConfigs, nil)
		require.False(t, isErr)
		assert.Contains(t, text, "classic")

		text, _ = call(t, client.handleGameInstructions, nil)
		assert.Contains(t, text, "RULES")
	})

	t.Run("missing session id", func(t *testing.T) {
		text, isErr := call(t, client.handleGameState, map[string]interface{}{})
		assert.True(t, isErr)
		assert.Contains(t, text, "session_id")
	})
}

func TestFormatGameState(t *testing.T) {
	state := &service.GameState{
		Board:         engine.Board{{2, 0}, {0, 128}},
		Score:         132,
		Best:          200,
		MaxTile:       128,
		PossibleMoves: []string{"left", "up"},
		GameOver:      false,
	}
	out := formatGameState(state)
	assert.Contains(t, out, "Score: 132 | Best: 200")
	assert.Contains(t, out, "  2   .")
	assert.Contains(t, out, "  . 128")
	assert.Contains(t, out, "Possible moves: left, up")
	assert.NotContains(t, out, "GAME OVER")

	assert.Equal(t, "No game state available", formatGameState(nil))
}
