package engine

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a game
type Status string

const (
	InProgress Status = "in_progress"
	Won        Status = "won"
	Lost       Status = "lost"
)

// Terminal reports whether no further moves are accepted
func (s Status) Terminal() bool {
	return s == Won || s == Lost
}

// Action identifies a player move
type Action string

const (
	ActionReveal Action = "reveal"
	ActionFlag   Action = "flag"
	ActionChord  Action = "chord"
)

// CellState is the presentation state of a cell
type CellState string

const (
	CellHidden   CellState = "hidden"
	CellFlagged  CellState = "flagged"
	CellRevealed CellState = "revealed"
)

const (
	// Validation constants
	MinDimension = 1
	MaxDimension = 100
	MaxBulkMoves = 50
)

// Coord identifies a cell by row and column
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Cell is the server-side state of a single grid cell
type Cell struct {
	Mine     bool `json:"mine,omitempty"`
	Revealed bool `json:"revealed,omitempty"`
	Flagged  bool `json:"flagged,omitempty"`
	Adjacent int  `json:"adjacent,omitempty"` // cached once the layout is final
}

// GameConfig is a difficulty preset loaded from JSON or YAML
type GameConfig struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Rows        int    `json:"rows" yaml:"rows"`
	Cols        int    `json:"cols" yaml:"cols"`
	Mines       int    `json:"mines" yaml:"mines"`
}

// Move is a single player action on a coordinate
type Move struct {
	Action Action `json:"action"`
	Coord  Coord  `json:"coord"`
}

func (m Move) String() string {
	return fmt.Sprintf("%s %s", m.Action, m.Coord)
}

// Outcome reports the effect of a move: the resulting status and every cell
// whose view changed, in the order they changed.
type Outcome struct {
	Action  Action  `json:"action"`
	Coord   Coord   `json:"coord"`
	Status  Status  `json:"status"`
	Changed []Coord `json:"changed"`
	Flagged bool    `json:"flagged,omitempty"` // flag state after a toggle
}

// Effective reports whether the move changed the board
func (o Outcome) Effective() bool {
	return len(o.Changed) > 0
}

// CellView is what a presentation layer may know about a cell
type CellView struct {
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	State     CellState `json:"state"`
	Revealed  bool      `json:"revealed"`
	Flagged   bool      `json:"flagged"`
	Mine      bool      `json:"mine,omitempty"`     // only if revealed or game over
	Adjacent  int       `json:"adjacent,omitempty"` // only if revealed
	Exploded  bool      `json:"exploded,omitempty"`
	WrongFlag bool      `json:"wrong_flag,omitempty"` // flagged safe cell, shown once the game is lost
}

// BoardView is the full presentation view of a game
type BoardView struct {
	Rows           int          `json:"rows"`
	Cols           int          `json:"cols"`
	Mines          int          `json:"mines"`
	Status         Status       `json:"status"`
	MinesRemaining int          `json:"mines_remaining"` // mines minus flags, may be negative
	Revealed       int          `json:"revealed"`
	SafeRemaining  int          `json:"safe_remaining"`
	Cells          [][]CellView `json:"cells"`
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	Action     Action `json:"action"`
	Coord      Coord  `json:"coord"`
	Changed    int    `json:"changed"`
	Status     Status `json:"status"`
	Effective  bool   `json:"effective"`
	Timestamp  int64  `json:"timestamp"`
	MoveNumber int    `json:"move_number"`
}

// Snapshot is the serializable state of a GameEngine
type Snapshot struct {
	Config      *GameConfig        `json:"config"`
	Board       *GameState         `json:"board"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMoves tracks only the moves since the last reset. It mirrors MoveHistory entries
	// but gets cleared on reset while MoveHistory remains cumulative.
	CurrentMoves      []MoveHistoryEntry `json:"current_moves"`
	CurrentMovesCount int                `json:"current_moves_count"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
