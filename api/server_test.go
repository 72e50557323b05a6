package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/minesweeper/game/config"
	"github.com/wricardo/minesweeper/game/engine"
	"github.com/wricardo/minesweeper/game/service"
	"github.com/wricardo/minesweeper/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	MoveFunc      func(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error)
	BulkMovesFunc func(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*service.BulkMoveResult, error)
	ResetFunc     func(ctx context.Context, sessionID string) (*engine.BoardView, error)

	// Game State
	GetBoardFunc       func(ctx context.Context, sessionID string) (*engine.BoardView, error)
	GetCellFunc        func(ctx context.Context, sessionID string, c engine.Coord) (*engine.CellView, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error

	// Records
	StatsFunc       func(ctx context.Context, configID string) (*service.Stats, error)
	RecentGamesFunc func(ctx context.Context, limit int) ([]*service.GameRecord, error)
}

// Session Management
func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		ConfigName: configName,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		ConfigName: "test-config",
		CreatedAt:  time.Now(),
	}, nil
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

// Game Operations
func (m *MockGameService) Reveal(ctx context.Context, sessionID string, c engine.Coord) (*service.MoveResult, error) {
	return m.Move(ctx, sessionID, engine.Move{Action: engine.ActionReveal, Coord: c}, false)
}

func (m *MockGameService) ToggleFlag(ctx context.Context, sessionID string, c engine.Coord) (*service.MoveResult, error) {
	return m.Move(ctx, sessionID, engine.Move{Action: engine.ActionFlag, Coord: c}, false)
}

func (m *MockGameService) MassReveal(ctx context.Context, sessionID string, c engine.Coord) (*service.MoveResult, error) {
	return m.Move(ctx, sessionID, engine.Move{Action: engine.ActionChord, Coord: c}, false)
}

func (m *MockGameService) Move(ctx context.Context, sessionID string, move engine.Move, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, move, reset)
	}
	return &service.MoveResult{
		Success: true,
		Action:  move.Action,
		Coord:   move.Coord,
		Status:  engine.InProgress,
		Board:   &engine.BoardView{},
	}, nil
}

func (m *MockGameService) BulkMoves(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMovesFunc != nil {
		return m.BulkMovesFunc(ctx, sessionID, moves, reset)
	}
	return &service.BulkMoveResult{
		Success:        true,
		MovesExecuted:  len(moves),
		RequestedMoves: len(moves),
		Status:         engine.InProgress,
		Board:          &engine.BoardView{},
	}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.BoardView, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.BoardView{Status: engine.InProgress}, nil
}

// Game State
func (m *MockGameService) GetBoard(ctx context.Context, sessionID string) (*engine.BoardView, error) {
	if m.GetBoardFunc != nil {
		return m.GetBoardFunc(ctx, sessionID)
	}
	return &engine.BoardView{Rows: 3, Cols: 3, Mines: 1, Status: engine.InProgress}, nil
}

func (m *MockGameService) GetCell(ctx context.Context, sessionID string, c engine.Coord) (*engine.CellView, error) {
	if m.GetCellFunc != nil {
		return m.GetCellFunc(ctx, sessionID, c)
	}
	return &engine.CellView{Row: c.Row, Col: c.Col, State: engine.CellHidden}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{
		Moves:      []engine.MoveHistoryEntry{},
		TotalMoves: 0,
		Page:       opts.Page,
		PageSize:   opts.Limit,
		TotalPages: 1,
	}, nil
}

// Configuration
func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{
		ID:          configName,
		Name:        configName,
		Description: "Test config",
		Rows:        8,
		Cols:        8,
		Mines:       10,
	}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, cfg *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, cfg)
	}
	cfg.ID = config.ConfigID(configName)
	return nil
}

// Records
func (m *MockGameService) Stats(ctx context.Context, configID string) (*service.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, configID)
	}
	return nil, service.ErrRecordsDisabled
}

func (m *MockGameService) RecentGames(ctx context.Context, limit int) ([]*service.GameRecord, error) {
	if m.RecentGamesFunc != nil {
		return m.RecentGamesFunc(ctx, limit)
	}
	return nil, service.ErrRecordsDisabled
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
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

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

type apiCase struct {
	name           string
	method         string
	path           string
	body           interface{}
	setupMock      func(*MockGameService)
	expectedStatus int
	validateResp   func(*testing.T, *httptest.ResponseRecorder)
}

func runCases(t *testing.T, tests []apiCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, tt.body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func expectError(substr string) func(*testing.T, *httptest.ResponseRecorder) {
	return func(t *testing.T, w *httptest.ResponseRecorder) {
		var resp map[string]string
		parseResponse(t, w, &resp)
		if !strings.Contains(resp["error"], substr) {
			t.Errorf("Expected error containing %q, got %q", substr, resp["error"])
		}
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("reveal (9,9): %w", &engine.InvalidCoordinateError{Coord: engine.Coord{Row: 9, Col: 9}, Rows: 3, Cols: 3}), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", engine.ErrInvalidConfiguration), http.StatusBadRequest},
		{engine.ErrUnknownAction, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", config.ErrInvalidConfig), http.StatusBadRequest},
		{fmt.Errorf("session ab12: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("config 'x': %w", service.ErrConfigNotFound), http.StatusNotFound},
		{service.ErrRecordsDisabled, http.StatusServiceUnavailable},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.want {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:           "Create session with default config",
			method:         "POST",
			path:           "/api/sessions",
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "test-session" {
					t.Errorf("Expected session ID 'test-session', got %s", resp.ID)
				}
			},
		},
		{
			name:   "Create session with specific config",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_id": "expert"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "expert" {
						t.Errorf("Expected config 'expert', got %s", configName)
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "Deprecated config_name still accepted",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_name": "beginner"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "ab12", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != "beginner" {
					t.Errorf("Expected config 'beginner', got %s", resp.ConfigName)
				}
			},
		},
		{
			name:   "Unknown config",
			method: "POST",
			path:   "/api/sessions",
			body:   map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config 'nope': %w", service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
			validateResp:   expectError("configuration not found"),
		},
		{
			name:   "Handle service error",
			method: "POST",
			path:   "/api/sessions",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp:   expectError("service error"),
		},
	})
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	threeSessions := func(m *MockGameService) {
		m.ListSessionsFunc = func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-time.Minute)},
				{ID: "mid", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Hour)},
				{ID: "new", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-2 * time.Hour)},
			}, nil
		}
	}
	ids := func(t *testing.T, w *httptest.ResponseRecorder) ([]string, map[string]interface{}) {
		var resp struct {
			Sessions []service.SessionInfo `json:"sessions"`
		}
		parseResponse(t, w, &resp)
		var raw map[string]interface{}
		parseResponse(t, w, &raw)
		var out []string
		for _, s := range resp.Sessions {
			out = append(out, s.ID)
		}
		return out, raw
	}

	runCases(t, []apiCase{
		{
			name:           "Default sort by last access",
			method:         "GET",
			path:           "/api/sessions",
			setupMock:      threeSessions,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				got, raw := ids(t, w)
				if strings.Join(got, ",") != "old,mid,new" {
					t.Errorf("Unexpected order %v", got)
				}
				if raw["count"].(float64) != 3 {
					t.Errorf("Expected count 3, got %v", raw["count"])
				}
			},
		},
		{
			name:           "Sort by created ascending with limit",
			method:         "GET",
			path:           "/api/sessions?sort=created&order=asc&limit=2",
			setupMock:      threeSessions,
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				got, raw := ids(t, w)
				if strings.Join(got, ",") != "old,mid" {
					t.Errorf("Unexpected order %v", got)
				}
				if raw["total"].(float64) != 3 || raw["count"].(float64) != 2 {
					t.Errorf("Expected total 3 count 2, got %v/%v", raw["total"], raw["count"])
				}
			},
		},
		{
			name:           "Handle empty session list",
			method:         "GET",
			path:           "/api/sessions",
			expectedStatus: http.StatusOK,
		},
	})
}

func TestGetAndDeleteSession(t *testing.T) {
	notFound := func(m *MockGameService) {
		m.GetSessionFunc = func(ctx context.Context, id string) (*service.SessionInfo, error) {
			return nil, fmt.Errorf("session %s: %w", id, service.ErrSessionNotFound)
		}
		m.DeleteSessionFunc = func(ctx context.Context, id string) error {
			return fmt.Errorf("session %s: %w", id, service.ErrSessionNotFound)
		}
	}

	runCases(t, []apiCase{
		{
			name:           "Get existing session",
			method:         "GET",
			path:           "/api/sessions/ab12",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:           "Get missing session",
			method:         "GET",
			path:           "/api/sessions/zz99",
			setupMock:      notFound,
			expectedStatus: http.StatusNotFound,
			validateResp:   expectError("session not found"),
		},
		{
			name:           "Delete session",
			method:         "DELETE",
			path:           "/api/sessions/ab12",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["message"] != "Session ab12 deleted" {
					t.Errorf("Unexpected message %q", resp["message"])
				}
			},
		},
		{
			name:           "Delete missing session",
			method:         "DELETE",
			path:           "/api/sessions/zz99",
			setupMock:      notFound,
			expectedStatus: http.StatusNotFound,
		},
	})
}

// Board Tests

func TestGetBoardAndCell(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:           "Get board",
			method:         "GET",
			path:           "/api/sessions/ab12/board",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var board engine.BoardView
				parseResponse(t, w, &board)
				if board.Rows != 3 || board.Status != engine.InProgress {
					t.Errorf("Unexpected board %+v", board)
				}
			},
		},
		{
			name:   "Get cell",
			method: "GET",
			path:   "/api/sessions/ab12/cells/2/1",
			setupMock: func(m *MockGameService) {
				m.GetCellFunc = func(ctx context.Context, id string, c engine.Coord) (*engine.CellView, error) {
					if c.Row != 2 || c.Col != 1 {
						t.Errorf("Expected (2,1), got %s", c)
					}
					return &engine.CellView{Row: 2, Col: 1, State: engine.CellRevealed, Revealed: true, Adjacent: 2}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var cell engine.CellView
				parseResponse(t, w, &cell)
				if cell.Adjacent != 2 || !cell.Revealed {
					t.Errorf("Unexpected cell %+v", cell)
				}
			},
		},
		{
			name:           "Non-integer coordinate",
			method:         "GET",
			path:           "/api/sessions/ab12/cells/a/1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Coordinate out of bounds",
			method: "GET",
			path:   "/api/sessions/ab12/cells/-1/7",
			setupMock: func(m *MockGameService) {
				m.GetCellFunc = func(ctx context.Context, id string, c engine.Coord) (*engine.CellView, error) {
					return nil, &engine.InvalidCoordinateError{Coord: c, Rows: 3, Cols: 3}
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
	})
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		query string
		want  service.HistoryOptions
	}{
		{"", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"?page=-1&limit=x&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}
	for _, tt := range tests {
		t.Run("history"+tt.query, func(t *testing.T) {
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, id string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					if opts != tt.want {
						t.Errorf("Expected options %+v, got %+v", tt.want, opts)
					}
					return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Errorf("Expected 200, got %d", w.Code)
			}
		})
	}
}

// Game Operation Tests

func TestMoveActions(t *testing.T) {
	for path, action := range map[string]engine.Action{
		"reveal": engine.ActionReveal,
		"flag":   engine.ActionFlag,
		"chord":  engine.ActionChord,
	} {
		t.Run(path, func(t *testing.T) {
			var gotMove engine.Move
			var gotReset bool
			mockService := &MockGameService{
				MoveFunc: func(ctx context.Context, id string, move engine.Move, reset bool) (*service.MoveResult, error) {
					gotMove, gotReset = move, reset
					return &service.MoveResult{Success: true, Action: move.Action, Coord: move.Coord, Status: engine.InProgress, Board: &engine.BoardView{}}, nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/"+path, map[string]interface{}{"row": 0, "col": 2, "reset": true}))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if gotMove.Action != action || gotMove.Coord != (engine.Coord{Row: 0, Col: 2}) || !gotReset {
				t.Errorf("Unexpected move %+v reset=%v", gotMove, gotReset)
			}

			var resp service.MoveResult
			parseResponse(t, w, &resp)
			if resp.Action != action {
				t.Errorf("Expected action %s in response, got %s", action, resp.Action)
			}
		})
	}
}

func TestMoveErrors(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:           "Invalid body",
			method:         "POST",
			path:           "/api/sessions/ab12/reveal",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing coordinate",
			method:         "POST",
			path:           "/api/sessions/ab12/flag",
			body:           map[string]int{"row": 1},
			expectedStatus: http.StatusBadRequest,
			validateResp:   expectError("row and col are required"),
		},
		{
			name:   "Out of bounds",
			method: "POST",
			path:   "/api/sessions/ab12/reveal",
			body:   map[string]int{"row": 10, "col": 10},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, id string, move engine.Move, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%s: %w", move, &engine.InvalidCoordinateError{Coord: move.Coord, Rows: 3, Cols: 3})
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Missing session",
			method: "POST",
			path:   "/api/sessions/zz99/chord",
			body:   map[string]int{"row": 0, "col": 0},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, id string, move engine.Move, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("session %s: %w", id, service.ErrSessionNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestBulkMoves(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:   "Execute moves",
			method: "POST",
			path:   "/api/sessions/ab12/moves",
			body: map[string]interface{}{
				"moves": []engine.Move{
					{Action: engine.ActionFlag, Coord: engine.Coord{Row: 1, Col: 1}},
					{Action: engine.ActionReveal, Coord: engine.Coord{Row: 0, Col: 0}},
				},
			},
			setupMock: func(m *MockGameService) {
				m.BulkMovesFunc = func(ctx context.Context, id string, moves []engine.Move, reset bool) (*service.BulkMoveResult, error) {
					if len(moves) != 2 || moves[0].Action != engine.ActionFlag {
						t.Errorf("Unexpected moves %v", moves)
					}
					return &service.BulkMoveResult{MovesExecuted: 2, RequestedMoves: 2, Success: true, Status: engine.InProgress}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.BulkMoveResult
				parseResponse(t, w, &resp)
				if resp.MovesExecuted != 2 {
					t.Errorf("Expected 2 moves executed, got %d", resp.MovesExecuted)
				}
			},
		},
		{
			name:           "Empty moves",
			method:         "POST",
			path:           "/api/sessions/ab12/moves",
			body:           map[string]interface{}{"moves": []engine.Move{}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid body",
			method:         "POST",
			path:           "/api/sessions/ab12/moves",
			body:           []int{1, 2},
			expectedStatus: http.StatusBadRequest,
		},
	})
}

func TestReset(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:           "Reset game",
			method:         "POST",
			path:           "/api/sessions/ab12/reset",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Message string            `json:"message"`
					Board   *engine.BoardView `json:"board"`
				}
				parseResponse(t, w, &resp)
				if resp.Board == nil || resp.Board.Status != engine.InProgress {
					t.Errorf("Expected in-progress board, got %+v", resp.Board)
				}
			},
		},
		{
			name:   "Reset missing session",
			method: "POST",
			path:   "/api/sessions/zz99/reset",
			setupMock: func(m *MockGameService) {
				m.ResetFunc = func(ctx context.Context, id string) (*engine.BoardView, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestBroadcastEvent(t *testing.T) {
	tests := []struct {
		status engine.Status
		action string
		want   string
	}{
		{engine.InProgress, "reveal", "reveal"},
		{engine.Won, "reveal", service.EventWon},
		{engine.Lost, "chord", service.EventLost},
	}
	for _, tt := range tests {
		if got := broadcastEvent(tt.status, tt.action); got != tt.want {
			t.Errorf("broadcastEvent(%s, %s) = %s, want %s", tt.status, tt.action, got, tt.want)
		}
	}
}

// Configuration Tests

func TestConfigs(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:   "List configs",
			method: "GET",
			path:   "/api/configs",
			setupMock: func(m *MockGameService) {
				m.ListConfigsFunc = func(ctx context.Context) ([]*service.ConfigInfo, error) {
					return []*service.ConfigInfo{
						{ConfigID: "beginner", Name: "Beginner", Rows: 8, Cols: 8, Mines: 10},
						{ConfigID: "expert", Name: "Expert", Rows: 16, Cols: 30, Mines: 99},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp []service.ConfigInfo
				parseResponse(t, w, &resp)
				if len(resp) != 2 || resp[1].Mines != 99 {
					t.Errorf("Unexpected configs %+v", resp)
				}
			},
		},
		{
			name:   "Get config strips extension",
			method: "GET",
			path:   "/api/configs/expert.yaml",
			setupMock: func(m *MockGameService) {
				m.LoadConfigFunc = func(ctx context.Context, name string) (*engine.GameConfig, error) {
					if name != "expert" {
						t.Errorf("Expected name 'expert', got %s", name)
					}
					return &engine.GameConfig{ID: "expert", Name: "Expert", Rows: 16, Cols: 30, Mines: 99}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Get missing config",
			method: "GET",
			path:   "/api/configs/nope",
			setupMock: func(m *MockGameService) {
				m.LoadConfigFunc = func(ctx context.Context, name string) (*engine.GameConfig, error) {
					return nil, fmt.Errorf("%w: %s", service.ErrConfigNotFound, name)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "Create YAML config",
			method: "POST",
			path:   "/api/configs",
			body:   map[string]interface{}{"name": "Tiny Board", "description": "d", "rows": 3, "cols": 3, "mines": 1, "format": "yaml"},
			setupMock: func(m *MockGameService) {
				m.SaveConfigFunc = func(ctx context.Context, name string, cfg *engine.GameConfig) error {
					if name != "Tiny Board.yaml" {
						t.Errorf("Expected yaml name, got %q", name)
					}
					if cfg.Rows != 3 || cfg.Mines != 1 {
						t.Errorf("Unexpected config %+v", cfg)
					}
					cfg.ID = "tiny_board"
					return nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]interface{}
				parseResponse(t, w, &resp)
				if resp["config_id"] != "tiny_board" {
					t.Errorf("Expected config_id tiny_board, got %v", resp["config_id"])
				}
			},
		},
		{
			name:           "Create config without name",
			method:         "POST",
			path:           "/api/configs",
			body:           map[string]interface{}{"rows": 3},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Create invalid config",
			method: "POST",
			path:   "/api/configs",
			body:   map[string]interface{}{"name": "bad", "description": "d", "rows": 2, "cols": 2, "mines": 4},
			setupMock: func(m *MockGameService) {
				m.SaveConfigFunc = func(ctx context.Context, name string, cfg *engine.GameConfig) error {
					return fmt.Errorf("%w: %w", config.ErrInvalidConfig, engine.ValidateGameConfig(cfg))
				}
			},
			expectedStatus: http.StatusBadRequest,
			validateResp:   expectError("Failed to save config"),
		},
	})
}

func TestConfigsWithRealManager(t *testing.T) {
	dir := t.TempDir()
	cm, err := config.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewGameService(nil, cm)
	server := NewServer(svc, nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{
		"name": "Narrow", "description": "one row", "rows": 1, "cols": 9, "mines": 2, "format": "yaml",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "narrow.yaml")); err != nil {
		t.Errorf("Expected narrow.yaml to be written: %v", err)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/narrow", nil))
	var cfg engine.GameConfig
	parseResponse(t, w, &cfg)
	if cfg.Cols != 9 || cfg.Mines != 2 {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

// Records Tests

func TestStats(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:           "Records disabled",
			method:         "GET",
			path:           "/api/stats",
			expectedStatus: http.StatusServiceUnavailable,
			validateResp:   expectError("not enabled"),
		},
		{
			name:   "Stats with recent games",
			method: "GET",
			path:   "/api/stats?config=beginner&recent=2",
			setupMock: func(m *MockGameService) {
				m.StatsFunc = func(ctx context.Context, configID string) (*service.Stats, error) {
					return &service.Stats{ConfigID: configID, Played: 3, Won: 1, Lost: 2, WinRate: 1.0 / 3}, nil
				}
				m.RecentGamesFunc = func(ctx context.Context, limit int) ([]*service.GameRecord, error) {
					if limit != 2 {
						t.Errorf("Expected limit 2, got %d", limit)
					}
					return []*service.GameRecord{{ID: "r1", Status: engine.Won}, {ID: "r2", Status: engine.Lost}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Stats  service.Stats        `json:"stats"`
					Recent []service.GameRecord `json:"recent"`
				}
				parseResponse(t, w, &resp)
				if resp.Stats.ConfigID != "beginner" || resp.Stats.Played != 3 {
					t.Errorf("Unexpected stats %+v", resp.Stats)
				}
				if len(resp.Recent) != 2 {
					t.Errorf("Expected 2 recent games, got %d", len(resp.Recent))
				}
			},
		},
		{
			name:   "Stats without recent games",
			method: "GET",
			path:   "/api/stats?recent=0",
			setupMock: func(m *MockGameService) {
				m.StatsFunc = func(ctx context.Context, configID string) (*service.Stats, error) {
					return &service.Stats{}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
	})
}

func TestHealth(t *testing.T) {
	runCases(t, []apiCase{
		{
			name:           "Health check",
			method:         "GET",
			path:           "/api/health",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["status"] != "healthy" {
					t.Errorf("Expected healthy, got %q", resp["status"])
				}
			},
		},
	})
}

func TestStaticDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>mines</h1>"), 0644)

	server := NewServer(&MockGameService{}, nil, WithStaticDir(dir))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "mines") {
		t.Errorf("Expected static index, got %d %q", w.Code, w.Body.String())
	}

	// API routes still win over the static handler
	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected health 200, got %d", w.Code)
	}
}

// WebSocket Tests

func TestWebSocketRejects(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		withHub        bool
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{"Missing session parameter", "", true, nil, http.StatusBadRequest},
		{"No hub", "?session=ab12", false, nil, http.StatusServiceUnavailable},
		{
			"Unknown session", "?session=zz99", true,
			func(m *MockGameService) {
				m.GetBoardFunc = func(ctx context.Context, id string) (*engine.BoardView, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}
			server := NewServer(mockService, nil)
			if tt.withHub {
				server = setupTestServer(t, mockService)
			}

			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.query, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestWebSocketReceivesMoves(t *testing.T) {
	mockService := &MockGameService{
		MoveFunc: func(ctx context.Context, id string, move engine.Move, reset bool) (*service.MoveResult, error) {
			return &service.MoveResult{
				Success: true,
				Action:  move.Action,
				Coord:   move.Coord,
				Status:  engine.Lost,
				Board:   &engine.BoardView{Rows: 3, Cols: 3, Status: engine.Lost},
			}, nil
		},
	}
	server := setupTestServer(t, mockService)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws?session=ab12"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	read := func() websocket.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Event != websocket.EventConnected || msg.Board == nil {
		t.Fatalf("Expected connected message, got %+v", msg)
	}

	// Registration happens right after the connected message is queued
	deadline := time.Now().Add(time.Second)
	for server.hub.ClientCount("ab12") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	body, _ := json.Marshal(map[string]int{"row": 1, "col": 1})
	resp, err := http.Post(httpServer.URL+"/api/sessions/ab12/reveal", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Reveal request failed: %v", err)
	}
	resp.Body.Close()

	msg := read()
	if msg.Event != service.EventLost || msg.SessionID != "ab12" {
		t.Errorf("Expected lost event for ab12, got %+v", msg)
	}
	if msg.Board == nil || msg.Board.Status != engine.Lost {
		t.Errorf("Expected lost board, got %+v", msg.Board)
	}
}
