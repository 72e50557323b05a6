package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GameState is a single Minesweeper board
type GameState struct {
	Rows         int      `json:"rows"`
	Cols         int      `json:"cols"`
	MineCount    int      `json:"mine_count"`
	Cells        [][]Cell `json:"cells"`
	Status       Status   `json:"status"`
	RevealedSafe int      `json:"revealed_safe"`
	Flags        int      `json:"flags"`
	Exploded     *Coord   `json:"exploded,omitempty"`
}

// Option customizes board construction
type Option func(*gameOptions)

type gameOptions struct {
	rng   *rand.Rand
	mines []Coord
	fixed bool
}

// WithRand draws mine positions from r
func WithRand(r *rand.Rand) Option {
	return func(o *gameOptions) {
		o.rng = r
	}
}

// WithSeed draws mine positions from a PCG source seeded with seed
func WithSeed(seed uint64) Option {
	return func(o *gameOptions) {
		o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithMines uses a fixed mine layout instead of random placement. With no
// coordinates the layout is an empty board.
func WithMines(mines ...Coord) Option {
	return func(o *gameOptions) {
		o.mines = append([]Coord(nil), mines...)
		o.fixed = true
	}
}

func resolveOptions(opts []Option) gameOptions {
	var o gameOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = newTimeSeededRand()
	}
	return o
}

func newTimeSeededRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// NewGame creates a board with mineCount randomly placed mines
func NewGame(rows, cols, mineCount int, opts ...Option) (*GameState, error) {
	return newGame(rows, cols, mineCount, resolveOptions(opts))
}

func newGame(rows, cols, mineCount int, o gameOptions) (*GameState, error) {
	if err := checkDimensions(rows, cols, mineCount); err != nil {
		return nil, err
	}

	mines := o.mines
	if !o.fixed {
		var err error
		mines, err = PlaceMines(rows, cols, mineCount, o.rng)
		if err != nil {
			return nil, err
		}
	} else if err := checkLayout(rows, cols, mineCount, mines); err != nil {
		return nil, err
	}

	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
	}
	for _, m := range mines {
		cells[m.Row][m.Col].Mine = true
	}

	gs := &GameState{
		Rows:      rows,
		Cols:      cols,
		MineCount: mineCount,
		Cells:     cells,
		Status:    InProgress,
	}
	gs.calculateAdjacency()

	return gs, nil
}

// PlaceMines returns count distinct in-bounds coordinates drawn uniformly from r.
// Duplicate draws are retried. A nil r uses a time-seeded source.
func PlaceMines(rows, cols, count int, r *rand.Rand) ([]Coord, error) {
	if err := checkDimensions(rows, cols, count); err != nil {
		return nil, err
	}
	if r == nil {
		r = newTimeSeededRand()
	}

	placed := make(map[Coord]struct{}, count)
	mines := make([]Coord, 0, count)
	for len(mines) < count {
		c := Coord{Row: r.IntN(rows), Col: r.IntN(cols)}
		if _, dup := placed[c]; dup {
			continue
		}
		placed[c] = struct{}{}
		mines = append(mines, c)
	}

	return mines, nil
}

// checkLayout validates a fixed mine layout
func checkLayout(rows, cols, count int, mines []Coord) error {
	if len(mines) != count {
		return &InvalidConfigurationError{Rows: rows, Cols: cols, Mines: count,
			Reason: fmt.Sprintf("layout has %d mines", len(mines))}
	}
	seen := make(map[Coord]struct{}, len(mines))
	for _, m := range mines {
		if m.Row < 0 || m.Row >= rows || m.Col < 0 || m.Col >= cols {
			return &InvalidConfigurationError{Rows: rows, Cols: cols, Mines: count,
				Reason: fmt.Sprintf("mine %s is out of bounds", m)}
		}
		if _, dup := seen[m]; dup {
			return &InvalidConfigurationError{Rows: rows, Cols: cols, Mines: count,
				Reason: fmt.Sprintf("mine %s is placed twice", m)}
		}
		seen[m] = struct{}{}
	}
	return nil
}

// InBounds reports whether c lies on the board
func (gs *GameState) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < gs.Rows && c.Col >= 0 && c.Col < gs.Cols
}

func (gs *GameState) checkCoord(c Coord) error {
	if !gs.InBounds(c) {
		return &InvalidCoordinateError{Coord: c, Rows: gs.Rows, Cols: gs.Cols}
	}
	return nil
}

func (gs *GameState) cell(c Coord) *Cell {
	return &gs.Cells[c.Row][c.Col]
}

// Neighbors returns the in-bounds 8-connected neighbours of c
func (gs *GameState) Neighbors(c Coord) []Coord {
	neighbors := make([]Coord, 0, 8)
	gs.forEachNeighbor(c, func(n Coord) {
		neighbors = append(neighbors, n)
	})
	return neighbors
}

func (gs *GameState) forEachNeighbor(c Coord, fn func(Coord)) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Coord{Row: c.Row + dr, Col: c.Col + dc}
			if gs.InBounds(n) {
				fn(n)
			}
		}
	}
}

// AdjacentMineCount returns the number of mines among the neighbours of c
func (gs *GameState) AdjacentMineCount(c Coord) (int, error) {
	if err := gs.checkCoord(c); err != nil {
		return 0, err
	}
	return gs.countNeighbors(c, func(n *Cell) bool { return n.Mine }), nil
}

// AdjacentFlagCount returns the number of flagged neighbours of c
func (gs *GameState) AdjacentFlagCount(c Coord) (int, error) {
	if err := gs.checkCoord(c); err != nil {
		return 0, err
	}
	return gs.countNeighbors(c, func(n *Cell) bool { return n.Flagged }), nil
}

func (gs *GameState) countNeighbors(c Coord, match func(*Cell) bool) int {
	count := 0
	gs.forEachNeighbor(c, func(n Coord) {
		if match(gs.cell(n)) {
			count++
		}
	})
	return count
}

// calculateAdjacency caches the adjacency count of every cell
func (gs *GameState) calculateAdjacency() {
	for r := 0; r < gs.Rows; r++ {
		for c := 0; c < gs.Cols; c++ {
			at := Coord{Row: r, Col: c}
			gs.cell(at).Adjacent = gs.countNeighbors(at, func(n *Cell) bool { return n.Mine })
		}
	}
}

// Mines returns the mine layout in row-major order
func (gs *GameState) Mines() []Coord {
	mines := make([]Coord, 0, gs.MineCount)
	for r, row := range gs.Cells {
		for c, cell := range row {
			if cell.Mine {
				mines = append(mines, Coord{Row: r, Col: c})
			}
		}
	}
	return mines
}

// Clone returns a deep copy of the board
func (gs *GameState) Clone() *GameState {
	clone := *gs
	clone.Cells = make([][]Cell, len(gs.Cells))
	for r, row := range gs.Cells {
		clone.Cells[r] = append([]Cell(nil), row...)
	}
	if gs.Exploded != nil {
		exploded := *gs.Exploded
		clone.Exploded = &exploded
	}
	return &clone
}

// Validate checks a decoded board for consistency and rebuilds its cached counters
func (gs *GameState) Validate() error {
	if err := checkDimensions(gs.Rows, gs.Cols, gs.MineCount); err != nil {
		return err
	}
	if len(gs.Cells) != gs.Rows {
		return fmt.Errorf("%w: board has %d rows, expected %d", ErrInvalidConfiguration, len(gs.Cells), gs.Rows)
	}

	mines, revealed, revealedMines, flags := 0, 0, 0, 0
	for r, row := range gs.Cells {
		if len(row) != gs.Cols {
			return fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvalidConfiguration, r, len(row), gs.Cols)
		}
		for c, cell := range row {
			if cell.Revealed && cell.Flagged {
				return fmt.Errorf("%w: cell (%d,%d) is both revealed and flagged", ErrInvalidConfiguration, r, c)
			}
			if cell.Mine {
				mines++
			}
			if cell.Revealed {
				if cell.Mine {
					revealedMines++
				} else {
					revealed++
				}
			}
			if cell.Flagged {
				flags++
			}
		}
	}
	if mines != gs.MineCount {
		return fmt.Errorf("%w: board has %d mines, expected %d", ErrInvalidConfiguration, mines, gs.MineCount)
	}

	if gs.Status == "" {
		gs.Status = InProgress
	}
	if err := gs.checkStatus(revealed, revealedMines); err != nil {
		return err
	}

	gs.RevealedSafe = revealed
	gs.Flags = flags
	gs.calculateAdjacency()
	return nil
}

// checkStatus verifies that the status agrees with the revealed cells. A lost
// board has exactly one revealed mine, the exploded cell; a won board has
// every safe cell revealed.
func (gs *GameState) checkStatus(revealed, revealedMines int) error {
	safe := gs.Rows*gs.Cols - gs.MineCount
	if gs.Exploded != nil && gs.Status != Lost {
		return fmt.Errorf("%w: %s board has an exploded cell", ErrInvalidConfiguration, gs.Status)
	}

	switch gs.Status {
	case InProgress:
		if revealedMines > 0 {
			return fmt.Errorf("%w: in progress board has a revealed mine", ErrInvalidConfiguration)
		}
		if revealed == safe {
			return fmt.Errorf("%w: in progress board has every safe cell revealed", ErrInvalidConfiguration)
		}
	case Won:
		if revealedMines > 0 || revealed != safe {
			return fmt.Errorf("%w: won board has %d of %d safe cells revealed", ErrInvalidConfiguration, revealed, safe)
		}
	case Lost:
		if gs.Exploded == nil || !gs.InBounds(*gs.Exploded) {
			return fmt.Errorf("%w: lost board has no exploded cell", ErrInvalidConfiguration)
		}
		exploded := gs.cell(*gs.Exploded)
		if revealedMines != 1 || !exploded.Mine || !exploded.Revealed {
			return fmt.Errorf("%w: exploded cell %s is not the revealed mine", ErrInvalidConfiguration, *gs.Exploded)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidConfiguration, gs.Status)
	}
	return nil
}
