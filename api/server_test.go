package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/game2048/game/engine"
	"github.com/wricardo/game2048/game/save"
	"github.com/wricardo/game2048/game/service"
	"github.com/wricardo/game2048/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc  func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc     func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc   func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc  func(ctx context.Context, sessionID string) error
	MoveFunc           func(ctx context.Context, sessionID, direction string) (*service.MoveResult, error)
	BulkMoveFunc       func(ctx context.Context, sessionID string, moves []string) (*service.BulkMoveResult, error)
	UndoFunc           func(ctx context.Context, sessionID string) (*service.GameState, error)
	NewGameFunc        func(ctx context.Context, sessionID string) (*service.GameState, error)
	AutoplayFunc       func(ctx context.Context, sessionID, strategy string, steps int) (*service.BulkMoveResult, error)
	GetGameStateFunc   func(ctx context.Context, sessionID string) (*service.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	ExportFunc         func(ctx context.Context, sessionID string) (*save.Record, error)
	ImportFunc         func(ctx context.Context, sessionID string, data []byte, format save.Format) (*service.GameState, error)
	ListConfigsFunc    func(ctx context.Context) ([]*service.ConfigInfo, error)
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "ab12", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "classic", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID, direction string) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, direction)
	}
	return &service.MoveResult{Success: true, Direction: direction, GameState: &service.GameState{}}, nil
}

func (m *MockGameService) BulkMove(ctx context.Context, sessionID string, moves []string) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, moves)
	}
	return &service.BulkMoveResult{MovesExecuted: len(moves), RequestedMoves: len(moves), GameState: &service.GameState{}}, nil
}

func (m *MockGameService) Undo(ctx context.Context, sessionID string) (*service.GameState, error) {
	if m.UndoFunc != nil {
		return m.UndoFunc(ctx, sessionID)
	}
	return &service.GameState{}, nil
}

func (m *MockGameService) NewGame(ctx context.Context, sessionID string) (*service.GameState, error) {
	if m.NewGameFunc != nil {
		return m.NewGameFunc(ctx, sessionID)
	}
	return &service.GameState{}, nil
}

func (m *MockGameService) Autoplay(ctx context.Context, sessionID, strategy string, steps int) (*service.BulkMoveResult, error) {
	if m.AutoplayFunc != nil {
		return m.AutoplayFunc(ctx, sessionID, strategy, steps)
	}
	return &service.BulkMoveResult{Strategy: strategy, GameState: &service.GameState{}}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*service.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &service.GameState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Moves: []service.MoveHistoryEntry{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockGameService) Export(ctx context.Context, sessionID string) (*save.Record, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, sessionID)
	}
	return &save.Record{Board: engine.NewBoard(4)}, nil
}

func (m *MockGameService) Import(ctx context.Context, sessionID string, data []byte, format save.Format) (*service.GameState, error) {
	if m.ImportFunc != nil {
		return m.ImportFunc(ctx, sessionID, data, format)
	}
	return &service.GameState{}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.RunContext(ctx)
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), w.Body.String())
}

func notFound(context.Context, string) (*service.GameState, error) {
	return nil, fmt.Errorf("%w: zz99", service.ErrSessionNotFound)
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		err            error
		expectedStatus int
		expectedConfig string
	}{
		{name: "default config", body: nil, expectedStatus: http.StatusCreated, expectedConfig: ""},
		{name: "config_id", body: map[string]string{"config_id": "small"}, expectedStatus: http.StatusCreated, expectedConfig: "small"},
		{name: "config_name fallback", body: map[string]string{"config_name": "big"}, expectedStatus: http.StatusCreated, expectedConfig: "big"},
		{name: "unknown config", body: map[string]string{"config_id": "nope"}, err: service.ErrConfigNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			mock := &MockGameService{
				CreateSessionFunc: func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					got = configName
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: configName}, nil
				},
			}
			w := serve(setupTestServer(t, mock), makeRequest("POST", "/api/sessions", tt.body))
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedConfig, got)
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "a", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-time.Hour), GameState: &service.GameState{Score: 50}},
				{ID: "b", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now, GameState: &service.GameState{Score: 500}},
				{ID: "c", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-2 * time.Hour), GameState: &service.GameState{Score: 5}},
			}, nil
		},
	}
	s := setupTestServer(t, mock)

	ids := func(path string) []string {
		w := serve(s, makeRequest("GET", path, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Total    int                    `json:"total"`
			Sessions []*service.SessionInfo `json:"sessions"`
		}
		parseResponse(t, w, &resp)
		assert.Equal(t, 3, resp.Total)
		out := make([]string, 0, len(resp.Sessions))
		for _, sess := range resp.Sessions {
			out = append(out, sess.ID)
		}
		return out
	}

	assert.Equal(t, []string{"b", "a", "c"}, ids("/api/sessions"))
	assert.Equal(t, []string{"a", "b", "c"}, ids("/api/sessions?sort=created&order=asc"))
	assert.Equal(t, []string{"b", "a"}, ids("/api/sessions?sort=score&limit=2"))
}

func TestGetAndDeleteSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			if id != "ab12" {
				return nil, service.ErrSessionNotFound
			}
			return &service.SessionInfo{ID: id}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, id string) error {
			return service.ErrSessionNotFound
		},
	}
	s := setupTestServer(t, mock)

	assert.Equal(t, http.StatusOK, serve(s, makeRequest("GET", "/api/sessions/ab12", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(s, makeRequest("GET", "/api/sessions/zz99", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(s, makeRequest("DELETE", "/api/sessions/zz99", nil)).Code)
}

func TestMove(t *testing.T) {
	mock := &MockGameService{
		MoveFunc: func(ctx context.Context, id, direction string) (*service.MoveResult, error) {
			if _, err := engine.ParseDirection(direction); err != nil {
				return nil, err
			}
			return &service.MoveResult{
				Success:   true,
				Direction: direction,
				ScoreGain: 8,
				GameState: &service.GameState{Score: 8},
			}, nil
		},
	}
	s := setupTestServer(t, mock)

	t.Run("valid direction", func(t *testing.T) {
		w := serve(s, makeRequest("POST", "/api/sessions/ab12/move", map[string]string{"direction": "left"}))
		require.Equal(t, http.StatusOK, w.Code)
		var resp service.MoveResult
		parseResponse(t, w, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, 8, resp.ScoreGain)
	})

	t.Run("invalid direction", func(t *testing.T) {
		w := serve(s, makeRequest("POST", "/api/sessions/ab12/move", map[string]string{"direction": "sideways"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions/ab12/move", bytes.NewBufferString("{"))
		assert.Equal(t, http.StatusBadRequest, serve(s, req).Code)
	})
}

func TestBulkMove(t *testing.T) {
	var got []string
	mock := &MockGameService{
		BulkMoveFunc: func(ctx context.Context, id string, moves []string) (*service.BulkMoveResult, error) {
			got = moves
			return &service.BulkMoveResult{MovesExecuted: len(moves), GameState: &service.GameState{}}, nil
		},
	}
	s := setupTestServer(t, mock)

	w := serve(s, makeRequest("POST", "/api/sessions/ab12/bulk-move", map[string][]string{"moves": {"up", "left"}}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"up", "left"}, got)

	w = serve(s, makeRequest("POST", "/api/sessions/ab12/bulk-move", map[string][]string{"moves": {}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUndo(t *testing.T) {
	t.Run("restores", func(t *testing.T) {
		mock := &MockGameService{
			UndoFunc: func(ctx context.Context, id string) (*service.GameState, error) {
				return &service.GameState{Score: 4}, nil
			},
		}
		w := serve(setupTestServer(t, mock), makeRequest("POST", "/api/sessions/ab12/undo", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var state service.GameState
		parseResponse(t, w, &state)
		assert.Equal(t, 4, state.Score)
	})

	t.Run("nothing to undo is localized", func(t *testing.T) {
		mock := &MockGameService{
			UndoFunc: func(ctx context.Context, id string) (*service.GameState, error) {
				return nil, service.ErrNothingToUndo
			},
		}
		w := serve(setupTestServer(t, mock), makeRequest("POST", "/api/sessions/ab12/undo?lang=en", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
		var resp map[string]string
		parseResponse(t, w, &resp)
		assert.NotEmpty(t, resp["error"])
	})

	t.Run("unknown session", func(t *testing.T) {
		mock := &MockGameService{UndoFunc: notFound}
		w := serve(setupTestServer(t, mock), makeRequest("POST", "/api/sessions/zz99/undo", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNewGame(t *testing.T) {
	called := false
	mock := &MockGameService{
		NewGameFunc: func(ctx context.Context, id string) (*service.GameState, error) {
			called = true
			return &service.GameState{Best: 256}, nil
		},
	}
	w := serve(setupTestServer(t, mock), makeRequest("POST", "/api/sessions/ab12/new", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestAutoplay(t *testing.T) {
	var gotStrategy string
	var gotSteps int
	mock := &MockGameService{
		AutoplayFunc: func(ctx context.Context, id, strategy string, steps int) (*service.BulkMoveResult, error) {
			gotStrategy, gotSteps = strategy, steps
			return &service.BulkMoveResult{Strategy: strategy, MovesExecuted: steps, GameState: &service.GameState{}}, nil
		},
	}
	s := setupTestServer(t, mock)

	w := serve(s, makeRequest("POST", "/api/sessions/ab12/autoplay", map[string]interface{}{"strategy": "greedy", "steps": 5}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "greedy", gotStrategy)
	assert.Equal(t, 5, gotSteps)

	// Empty body uses service defaults
	req := httptest.NewRequest("POST", "/api/sessions/ab12/autoplay", nil)
	require.Equal(t, http.StatusOK, serve(s, req).Code)
	assert.Equal(t, "", gotStrategy)
}

func TestGetHistory(t *testing.T) {
	var got service.HistoryOptions
	mock := &MockGameService{
		GetMoveHistoryFunc: func(ctx context.Context, id string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got = opts
			return &service.HistoryResponse{Page: opts.Page}, nil
		},
	}
	s := setupTestServer(t, mock)

	require.Equal(t, http.StatusOK, serve(s, makeRequest("GET", "/api/sessions/ab12/history", nil)).Code)
	assert.Equal(t, service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}, got)

	require.Equal(t, http.StatusOK, serve(s, makeRequest("GET", "/api/sessions/ab12/history?page=2&limit=5&order=asc&junk=1", nil)).Code)
	assert.Equal(t, service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}, got)
}

func TestExport(t *testing.T) {
	board := engine.Board{{2, 4, 0, 0}, {0, 0, 0, 0}, {0, 0, 8, 0}, {0, 0, 0, 16}}
	mock := &MockGameService{
		ExportFunc: func(ctx context.Context, id string) (*save.Record, error) {
			return &save.Record{Board: board, Score: 36, Best: 100}, nil
		},
	}
	s := setupTestServer(t, mock)

	w := serve(s, makeRequest("GET", "/api/sessions/ab12/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), save.ExportFilename)

	rec, err := save.Unmarshal(w.Body.Bytes(), save.JSON, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, board, rec.Board)
	assert.Equal(t, 36, rec.Score)
	assert.Equal(t, 100, rec.Best)

	w = serve(s, makeRequest("GET", "/api/sessions/ab12/export?format=yaml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	rec, err = save.Unmarshal(w.Body.Bytes(), save.YAML, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, board, rec.Board)
}

func TestImport(t *testing.T) {
	var gotData []byte
	var gotFormat save.Format
	mock := &MockGameService{
		ImportFunc: func(ctx context.Context, id string, data []byte, format save.Format) (*service.GameState, error) {
			gotData, gotFormat = data, format
			if _, err := save.Unmarshal(data, format, 4, 0); err != nil {
				return nil, err
			}
			return &service.GameState{Score: 12}, nil
		},
	}
	s := setupTestServer(t, mock)
	valid := `{"board":[[2,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,4]],"score":12,"best":40}`

	t.Run("raw json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions/ab12/import", bytes.NewBufferString(valid))
		req.Header.Set("Content-Type", "application/json")
		w := serve(s, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, save.JSON, gotFormat)
		assert.JSONEq(t, valid, string(gotData))
	})

	t.Run("multipart yaml upload", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", "game.yaml")
		require.NoError(t, err)
		fmt.Fprint(fw, "board:\n  - [2, 0, 0, 0]\n  - [0, 0, 0, 0]\n  - [0, 0, 0, 0]\n  - [0, 0, 0, 4]\nscore: 12\n")
		require.NoError(t, mw.Close())

		req := httptest.NewRequest("POST", "/api/sessions/ab12/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := serve(s, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, save.YAML, gotFormat)
	})

	t.Run("missing board is an invalid file", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions/ab12/import?lang=en", bytes.NewBufferString(`{"score":10}`))
		w := serve(s, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]string
		parseResponse(t, w, &resp)
		assert.Equal(t, "Invalid file", resp["error"])
	})

	t.Run("french by default", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions/ab12/import", bytes.NewBufferString(`not json`))
		w := serve(s, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]string
		parseResponse(t, w, &resp)
		assert.Equal(t, "Fichier invalide", resp["error"])
	})
}

func TestListConfigs(t *testing.T) {
	mock := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Name: "Classic", Size: 4}}, nil
		},
	}
	w := serve(setupTestServer(t, mock), makeRequest("GET", "/api/configs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var configs []service.ConfigInfo
	parseResponse(t, w, &configs)
	require.Len(t, configs, 1)
	assert.Equal(t, "classic", configs[0].ConfigID)
}

func TestTexts(t *testing.T) {
	s := setupTestServer(t, &MockGameService{})

	req := makeRequest("GET", "/api/i18n", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	w := serve(s, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Lang  string            `json:"lang"`
		Texts map[string]string `json:"texts"`
	}
	parseResponse(t, w, &resp)
	assert.Equal(t, "en", resp.Lang)
	assert.NotEmpty(t, resp.Texts["newGame"])

	w = serve(s, makeRequest("GET", "/api/i18n?lang=de", nil))
	parseResponse(t, w, &resp)
	assert.Equal(t, "fr", resp.Lang)
}

func TestHealth(t *testing.T) {
	w := serve(setupTestServer(t, &MockGameService{}), makeRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestWebSocketRequiresSession(t *testing.T) {
	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			return nil, service.ErrSessionNotFound
		},
	}
	s := setupTestServer(t, mock)

	assert.Equal(t, http.StatusBadRequest, serve(s, makeRequest("GET", "/ws", nil)).Code)
	assert.Equal(t, http.StatusNotFound, serve(s, makeRequest("GET", "/ws?session=zz99", nil)).Code)
}
