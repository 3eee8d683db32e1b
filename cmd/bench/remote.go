package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/game2048/game/autoplay"
	"github.com/wricardo/game2048/game/service"
)

// remoteBatch is the number of autoplay steps requested per call
const remoteBatch = 200

// Client plays games against a running server's REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateSession starts a session with the given variant, or the server
// default when configName is empty.
func (c *Client) CreateSession(ctx context.Context, configName string) (*service.GameState, error) {
	var req any
	if configName != "" {
		req = map[string]string{"config_name": configName}
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	c.sessionID = session.ID
	return session.GameState, nil
}

func (c *Client) GetState(ctx context.Context) (*service.GameState, error) {
	var state service.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) Move(ctx context.Context, direction string) (*service.MoveResult, error) {
	var result service.MoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/move"), map[string]string{"direction": direction}, &result); err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}
	return &result, nil
}

// Autoplay asks the server to play up to steps moves with strategy
func (c *Client) Autoplay(ctx context.Context, strategy string, steps int) (*service.BulkMoveResult, error) {
	req := map[string]any{"strategy": strategy, "steps": steps}
	var result service.BulkMoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/autoplay"), req, &result); err != nil {
		return nil, fmt.Errorf("autoplay: %w", err)
	}
	return &result, nil
}

func (c *Client) Delete(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.sessionPath(""), nil, nil)
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept-Language", "en")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s - %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// runRemote plays opts.Games games one after the other on the server at
// baseURL, each in its own session. Sessions are deleted afterwards unless
// keep is set.
func runRemote(ctx context.Context, baseURL, configName string, opts options, keep bool) (*Report, error) {
	if _, err := autoplay.New(opts.Strategy, nil); err != nil {
		return nil, err
	}

	start := time.Now()
	summaries := make([]autoplay.GameSummary, 0, opts.Games)

	for i := 0; i < opts.Games; i++ {
		client := NewClient(baseURL)
		summary, err := playRemote(ctx, client, configName, opts)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i, err)
		}
		summaries = append(summaries, summary)
		log.Debug().Str("session", client.sessionID).Int("score", summary.Score).Int("max_tile", summary.MaxTile).Msg("remote game finished")

		if !keep {
			if err := client.Delete(ctx); err != nil {
				log.Warn().Err(err).Str("session", client.sessionID).Msg("failed to delete session")
			}
		}
	}

	return summarize(summaries, time.Since(start)), nil
}

func playRemote(ctx context.Context, client *Client, configName string, opts options) (autoplay.GameSummary, error) {
	state, err := client.CreateSession(ctx, configName)
	if err != nil {
		return autoplay.GameSummary{}, err
	}

	summary := autoplay.GameSummary{Strategy: opts.Strategy}
	for state != nil && !state.GameOver {
		steps := remoteBatch
		if opts.MaxMoves > 0 {
			if summary.Moves >= opts.MaxMoves {
				break
			}
			steps = min(steps, opts.MaxMoves-summary.Moves)
		}

		result, err := client.Autoplay(ctx, opts.Strategy, steps)
		if err != nil {
			return summary, err
		}
		if result.Strategy != "" {
			summary.Strategy = result.Strategy
		}
		summary.Moves += result.ChangedMoves
		state = result.GameState
		if result.MovesExecuted == 0 {
			break
		}
	}

	if state != nil {
		summary.Score = state.Score
		summary.MaxTile = state.MaxTile
	}
	return summary, nil
}
