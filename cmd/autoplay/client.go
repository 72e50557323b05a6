package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/minesweeper/game/engine"
	"github.com/wricardo/minesweeper/game/service"
)

// Client talks to the game REST API for a single session
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client plays
func (c *Client) SessionID() string {
	return c.sessionID
}

// CreateSession starts a new session on configID (the server default when empty)
func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var req interface{}
	if configID != "" {
		req = map[string]string{"config_id": configID}
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = session.ID
	return &session, nil
}

// Resume points the client at an existing session and returns its board
func (c *Client) Resume(ctx context.Context, sessionID string) (*engine.BoardView, error) {
	c.sessionID = sessionID
	board, err := c.Board(ctx)
	if err != nil {
		c.sessionID = ""
		return nil, err
	}
	return board, nil
}

func (c *Client) Board(ctx context.Context) (*engine.BoardView, error) {
	var board engine.BoardView
	if err := c.do(ctx, http.MethodGet, c.sessionPath("board"), nil, &board); err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return &board, nil
}

// Move applies a single action
func (c *Client) Move(ctx context.Context, move engine.Move) (*service.MoveResult, error) {
	req := map[string]int{"row": move.Coord.Row, "col": move.Coord.Col}

	var result service.MoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath(string(move.Action)), req, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", move, err)
	}
	return &result, nil
}

// BulkMoves applies up to engine.MaxBulkMoves moves in one request
func (c *Client) BulkMoves(ctx context.Context, moves []engine.Move) (*service.BulkMoveResult, error) {
	if len(moves) > engine.MaxBulkMoves {
		moves = moves[:engine.MaxBulkMoves]
	}
	req := map[string]interface{}{"moves": moves}

	var result service.BulkMoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("moves"), req, &result); err != nil {
		return nil, fmt.Errorf("bulk moves: %w", err)
	}
	return &result, nil
}

// Reset starts a new layout on the same preset
func (c *Client) Reset(ctx context.Context) (*engine.BoardView, error) {
	var resp struct {
		Message string            `json:"message"`
		Board   *engine.BoardView `json:"board"`
	}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.Board, nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + "/" + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
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

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
