package service

import (
	"errors"
	"time"

	"github.com/wricardo/minesweeper/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrRecordsDisabled = errors.New("game records are not enabled")
)

// Event types carried by move results and broadcasts
const (
	EventReveal  = "reveal"
	EventCascade = "cascade"
	EventFlag    = "flag"
	EventUnflag  = "unflag"
	EventChord   = "chord"
	EventWon     = "won"
	EventLost    = "lost"
	EventReset   = "reset"
)

// Machine-friendly bulk stop codes
const (
	StopWon               = "won"
	StopLost              = "lost"
	StopGameOver          = "game_over"
	StopInvalidCoordinate = "invalid_coordinate"
	StopUnknownAction     = "unknown_action"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Board          *engine.BoardView  `json:"board"`
	GameConfig     *engine.GameConfig `json:"game_config"`
	TotalMoves     int                `json:"total_moves"`
	DurationMs     int64              `json:"duration_ms"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success bool              `json:"success"` // the move changed the board
	Action  engine.Action     `json:"action"`
	Coord   engine.Coord      `json:"coord"`
	Status  engine.Status     `json:"status"`
	Changed []engine.CellView `json:"changed"`
	Board   *engine.BoardView `json:"board"`
	Message string            `json:"message"`
	Events  []GameEvent       `json:"events,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	Board          *engine.BoardView `json:"board"`
	Events         []GameEvent       `json:"events"`
	Steps          []StepInfo        `json:"steps,omitempty"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // won|lost|game_over|invalid_coordinate|unknown_action
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	Status         engine.Status     `json:"status"`
	GameOver       bool              `json:"game_over"`
	Message        string            `json:"message,omitempty"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx       int           `json:"idx"`
	Action    engine.Action `json:"action"`
	Coord     engine.Coord  `json:"coord"`
	Changed   int           `json:"changed"`
	Effective bool          `json:"effective"`
	Status    engine.Status `json:"status"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string        `json:"type"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Coord     *engine.Coord `json:"coord,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Mines       int    `json:"mines"`
}

// GameRecord is a finished game
type GameRecord struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	ConfigID   string        `json:"config_id"`
	Rows       int           `json:"rows"`
	Cols       int           `json:"cols"`
	Mines      int           `json:"mines"`
	Status     engine.Status `json:"status"`
	Moves      int           `json:"moves"`
	Revealed   int           `json:"revealed"`
	DurationMs int64         `json:"duration_ms"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Stats aggregates finished games, optionally for one config
type Stats struct {
	ConfigID  string  `json:"config_id,omitempty"`
	Played    int     `json:"played"`
	Won       int     `json:"won"`
	Lost      int     `json:"lost"`
	WinRate   float64 `json:"win_rate"`
	BestWinMs int64   `json:"best_win_ms,omitempty"`
	AvgMoves  float64 `json:"avg_moves"`
}
