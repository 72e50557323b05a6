package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() (*GameState, error)
	Status() Status
	IsGameOver() bool
	IsVictory() bool

	// Moves
	Reveal(c Coord) (Outcome, error)
	ToggleFlag(c Coord) (Outcome, error)
	MassReveal(c Coord) (Outcome, error)
	Do(m Move) (Outcome, error)
	BulkMoves(moves []Move) ([]Outcome, error)

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetCurrentMoves() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
	TotalMoves() int

	// Views
	View() *BoardView
	CellView(c Coord) (CellView, error)

	// Persistence
	Snapshot() *Snapshot
	Restore(s *Snapshot) error
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig
	opts   gameOptions

	moveHistory  []MoveHistoryEntry
	totalMoves   int
	currentMoves []MoveHistoryEntry

	startedAt  *time.Time
	finishedAt *time.Time
	now        func() time.Time
}

// NewEngine creates a new game engine with the provided configuration. Options
// are kept and reused by Reset, so a fixed layout is replayed and a seeded
// source keeps drawing from the same sequence.
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: config,
		opts:   resolveOptions(opts),
		now:    time.Now,
	}
	state, err := newGame(config.Rows, config.Cols, config.Mines, e.opts)
	if err != nil {
		return nil, err
	}
	e.state = state

	return e, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults(opts ...Option) *GameEngine {
	e, err := NewEngine(DefaultConfig(), opts...)
	if err != nil {
		panic(fmt.Sprintf("default config rejected: %v", err))
	}
	return e
}

// GetState returns the current board
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState replaces the board (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := state.Validate(); err != nil {
		return err
	}
	e.state = state
	return nil
}

// Reset starts a new board from the config
func (e *GameEngine) Reset() (*GameState, error) {
	state, err := newGame(e.config.Rows, e.config.Cols, e.config.Mines, e.opts)
	if err != nil {
		return nil, err
	}
	e.state = state

	// Preserve cumulative history and totals; clear only the current segment
	e.currentMoves = nil
	e.startedAt = nil
	e.finishedAt = nil

	return e.state, nil
}

// Status returns the game status
func (e *GameEngine) Status() Status {
	return e.state.Status
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.Status.Terminal()
}

// IsVictory returns whether the player has won
func (e *GameEngine) IsVictory() bool {
	return e.state.Status == Won
}

// Reveal uncovers a cell and records the move
func (e *GameEngine) Reveal(c Coord) (Outcome, error) {
	return e.Do(Move{Action: ActionReveal, Coord: c})
}

// ToggleFlag flips a flag and records the move
func (e *GameEngine) ToggleFlag(c Coord) (Outcome, error) {
	return e.Do(Move{Action: ActionFlag, Coord: c})
}

// MassReveal chords on a revealed number and records the move
func (e *GameEngine) MassReveal(c Coord) (Outcome, error) {
	return e.Do(Move{Action: ActionChord, Coord: c})
}

// Do applies a move and adds it to the history. Moves rejected with an error
// are not recorded.
func (e *GameEngine) Do(m Move) (Outcome, error) {
	out, err := e.state.Apply(m)
	if err != nil {
		return out, err
	}

	now := e.now()
	if out.Effective() && e.startedAt == nil {
		started := now
		e.startedAt = &started
	}
	if out.Status.Terminal() && e.finishedAt == nil {
		finished := now
		e.finishedAt = &finished
	}

	e.addMoveToHistory(out, now)
	return out, nil
}

// BulkMoves executes moves in sequence. It stops once the game ends or a move
// fails, returning the outcomes of the moves that were applied.
func (e *GameEngine) BulkMoves(moves []Move) ([]Outcome, error) {
	if len(moves) > MaxBulkMoves {
		return nil, fmt.Errorf("%w: %d moves exceeds the limit of %d", ErrTooManyMoves, len(moves), MaxBulkMoves)
	}

	outcomes := make([]Outcome, 0, len(moves))
	for i, m := range moves {
		if e.IsGameOver() {
			break
		}
		out, err := e.Do(m)
		if err != nil {
			return outcomes, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

func (e *GameEngine) addMoveToHistory(out Outcome, now time.Time) {
	entry := MoveHistoryEntry{
		Action:     out.Action,
		Coord:      out.Coord,
		Changed:    len(out.Changed),
		Status:     out.Status,
		Effective:  out.Effective(),
		Timestamp:  now.Unix(),
		MoveNumber: e.totalMoves + 1,
	}
	e.moveHistory = append(e.moveHistory, entry)
	e.currentMoves = append(e.currentMoves, entry)
	e.totalMoves++
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and starts a new board
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	prev := e.config
	e.config = config
	if _, err := e.Reset(); err != nil {
		e.config = prev
		return err
	}
	return nil
}

// GetMoveHistory returns the complete move history across resets
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.moveHistory
}

// GetCurrentMoves returns the moves made since the last reset
func (e *GameEngine) GetCurrentMoves() []MoveHistoryEntry {
	return e.currentMoves
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.moveHistory) == 0 {
		return nil
	}
	return &e.moveHistory[len(e.moveHistory)-1]
}

// TotalMoves returns the number of recorded moves across resets
func (e *GameEngine) TotalMoves() int {
	return e.totalMoves
}

// View returns the presentation view of the board
func (e *GameEngine) View() *BoardView {
	return e.state.View()
}

// CellView returns the presentation view of a single cell
func (e *GameEngine) CellView(c Coord) (CellView, error) {
	return e.state.CellView(c)
}

// StartedAt returns when the first effective move was made, or nil
func (e *GameEngine) StartedAt() *time.Time {
	return e.startedAt
}

// Duration returns the play time of the current board
func (e *GameEngine) Duration() time.Duration {
	if e.startedAt == nil {
		return 0
	}
	if e.finishedAt != nil {
		return e.finishedAt.Sub(*e.startedAt)
	}
	return e.now().Sub(*e.startedAt)
}

// Snapshot returns a copy of the engine state for persistence
func (e *GameEngine) Snapshot() *Snapshot {
	config := *e.config
	return &Snapshot{
		Config:            &config,
		Board:             e.state.Clone(),
		MoveHistory:       append([]MoveHistoryEntry(nil), e.moveHistory...),
		TotalMoves:        e.totalMoves,
		CurrentMoves:      append([]MoveHistoryEntry(nil), e.currentMoves...),
		CurrentMovesCount: len(e.currentMoves),
		StartedAt:         e.startedAt,
		FinishedAt:        e.finishedAt,
	}
}

// Restore replaces the engine state with a snapshot
func (e *GameEngine) Restore(s *Snapshot) error {
	if s == nil || s.Board == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if s.Config != nil {
		if err := ValidateGameConfig(s.Config); err != nil {
			return err
		}
	}
	if err := s.Board.Validate(); err != nil {
		return err
	}

	config := e.config
	if s.Config != nil {
		config = s.Config
	}
	if s.Board.Rows != config.Rows || s.Board.Cols != config.Cols || s.Board.MineCount != config.Mines {
		return fmt.Errorf("%w: board %dx%d/%d does not match config %dx%d/%d", ErrInvalidConfiguration,
			s.Board.Rows, s.Board.Cols, s.Board.MineCount, config.Rows, config.Cols, config.Mines)
	}

	e.config = config
	e.state = s.Board
	e.moveHistory = s.MoveHistory
	e.totalMoves = s.TotalMoves
	if e.totalMoves < len(e.moveHistory) {
		e.totalMoves = len(e.moveHistory)
	}
	e.currentMoves = s.CurrentMoves
	e.startedAt = s.StartedAt
	e.finishedAt = s.FinishedAt
	return nil
}
