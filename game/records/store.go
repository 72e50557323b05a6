package records

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/minesweeper/game/engine"
	"github.com/wricardo/minesweeper/game/service"
)

//go:embed schema.sql
var ddl string

var ErrInvalidRecord = errors.New("invalid game record")

// SQLiteStore implements service.RecordStore on a SQLite database
type SQLiteStore struct {
	DB  *sql.DB
	log *logrus.Entry
}

// InitializeTables creates the schema if it does not exist yet
func InitializeTables(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

// Open opens (creating if needed) the database at path and initializes the schema
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("records database path not set")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Ping so a bad path fails here instead of on the first insert
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open records database %s: %w", path, err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := InitializeTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{
		DB:  db,
		log: logrus.WithField("component", "records"),
	}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}

// SaveRecord inserts a finished game. An empty ID is filled with a new UUID.
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec *service.GameRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if !rec.Status.Terminal() {
		return fmt.Errorf("%w: status %q is not terminal", ErrInvalidRecord, rec.Status)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO game_records
			(id, session_id, config_id, board_rows, board_cols, mines, status, moves, revealed, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.ConfigID, rec.Rows, rec.Cols, rec.Mines,
		string(rec.Status), rec.Moves, rec.Revealed, rec.DurationMs, rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"record":  rec.ID,
		"session": rec.SessionID,
		"config":  rec.ConfigID,
		"status":  rec.Status,
	}).Debug("saved game record")
	return nil
}

// Stats aggregates records for a config. An empty configID covers all records.
func (s *SQLiteStore) Stats(ctx context.Context, configID string) (*service.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'won' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'lost' THEN 1 ELSE 0 END), 0),
			MIN(CASE WHEN status = 'won' THEN duration_ms END),
			COALESCE(AVG(moves), 0)
		FROM game_records`
	var args []any
	if configID != "" {
		query += " WHERE config_id = ?"
		args = append(args, configID)
	}

	var (
		stats    = &service.Stats{ConfigID: configID}
		bestWin  sql.NullInt64
		avgMoves float64
	)
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(
		&stats.Played, &stats.Won, &stats.Lost, &bestWin, &avgMoves,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	if bestWin.Valid {
		stats.BestWinMs = bestWin.Int64
	}
	stats.AvgMoves = avgMoves
	if stats.Played > 0 {
		stats.WinRate = float64(stats.Won) / float64(stats.Played)
	}
	return stats, nil
}

// Recent returns the most recently finished games, newest first
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*service.GameRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, session_id, config_id, board_rows, board_cols, mines, status, moves, revealed, duration_ms, finished_at
		FROM game_records
		ORDER BY finished_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []*service.GameRecord
	for rows.Next() {
		var (
			rec    service.GameRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ConfigID, &rec.Rows, &rec.Cols, &rec.Mines,
			&status, &rec.Moves, &rec.Revealed, &rec.DurationMs, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Status = engine.Status(status)
		result = append(result, &rec)
	}
	return result, rows.Err()
}
