package service

import (
	"context"
	"time"

	"github.com/wricardo/minesweeper/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Reveal(ctx context.Context, sessionID string, c engine.Coord) (*MoveResult, error)
	ToggleFlag(ctx context.Context, sessionID string, c engine.Coord) (*MoveResult, error)
	MassReveal(ctx context.Context, sessionID string, c engine.Coord) (*MoveResult, error)
	Move(ctx context.Context, sessionID string, move engine.Move, reset bool) (*MoveResult, error)
	BulkMoves(ctx context.Context, sessionID string, moves []engine.Move, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.BoardView, error)

	// Game State
	GetBoard(ctx context.Context, sessionID string) (*engine.BoardView, error)
	GetCell(ctx context.Context, sessionID string, c engine.Coord) (*engine.CellView, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Records
	Stats(ctx context.Context, configID string) (*Stats, error)
	RecentGames(ctx context.Context, limit int) ([]*GameRecord, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// RecordStore keeps finished games
type RecordStore interface {
	SaveRecord(ctx context.Context, record *GameRecord) error
	Stats(ctx context.Context, configID string) (*Stats, error)
	Recent(ctx context.Context, limit int) ([]*GameRecord, error)
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
