package engine

// CellView returns the presentation view of the cell at c
func (gs *GameState) CellView(c Coord) (CellView, error) {
	if err := gs.checkCoord(c); err != nil {
		return CellView{}, err
	}
	return gs.view(c), nil
}

// CellViews returns the views of coords in order. Out-of-bounds coordinates are skipped.
func (gs *GameState) CellViews(coords []Coord) []CellView {
	views := make([]CellView, 0, len(coords))
	for _, c := range coords {
		if gs.InBounds(c) {
			views = append(views, gs.view(c))
		}
	}
	return views
}

// View returns the presentation view of the whole board
func (gs *GameState) View() *BoardView {
	cells := make([][]CellView, gs.Rows)
	for r := 0; r < gs.Rows; r++ {
		cells[r] = make([]CellView, gs.Cols)
		for c := 0; c < gs.Cols; c++ {
			cells[r][c] = gs.view(Coord{Row: r, Col: c})
		}
	}

	return &BoardView{
		Rows:           gs.Rows,
		Cols:           gs.Cols,
		Mines:          gs.MineCount,
		Status:         gs.Status,
		MinesRemaining: gs.MineCount - gs.Flags,
		Revealed:       gs.RevealedSafe,
		SafeRemaining:  gs.Rows*gs.Cols - gs.MineCount - gs.RevealedSafe,
		Cells:          cells,
	}
}

func (gs *GameState) view(c Coord) CellView {
	cell := gs.Cells[c.Row][c.Col]
	over := gs.Status.Terminal()

	v := CellView{
		Row:      c.Row,
		Col:      c.Col,
		State:    CellHidden,
		Revealed: cell.Revealed,
		Flagged:  cell.Flagged,
	}

	switch {
	case cell.Revealed:
		v.State = CellRevealed
	case cell.Flagged:
		v.State = CellFlagged
	}

	if cell.Revealed || over {
		v.Mine = cell.Mine
	}
	if cell.Revealed && !cell.Mine {
		v.Adjacent = cell.Adjacent
	}
	if gs.Exploded != nil && *gs.Exploded == c {
		v.Exploded = true
	}
	if gs.Status == Lost && cell.Flagged && !cell.Mine {
		v.WrongFlag = true
	}

	return v
}
