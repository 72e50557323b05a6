package engine

// Reveal uncovers the cell at c. Revealing a mine loses the game; revealing a
// cell with no adjacent mines floods outward until the region is bordered by
// numbered cells. Terminal games, revealed cells and flagged cells are left
// untouched.
func (gs *GameState) Reveal(c Coord) (Outcome, error) {
	out := Outcome{Action: ActionReveal, Coord: c, Status: gs.Status}
	if err := gs.checkCoord(c); err != nil {
		return out, err
	}

	out.Changed = gs.reveal(c, nil)
	out.Status = gs.Status
	return out, nil
}

// reveal floods from start with an explicit stack, appending every revealed
// coordinate to changed. A cell is marked revealed when it is pushed so it is
// never queued twice.
func (gs *GameState) reveal(start Coord, changed []Coord) []Coord {
	if gs.Status.Terminal() {
		return changed
	}
	first := gs.cell(start)
	if first.Revealed || first.Flagged {
		return changed
	}

	first.Revealed = true
	stack := []Coord{start}
	for len(stack) > 0 {
		at := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		changed = append(changed, at)

		cur := gs.cell(at)
		if cur.Mine {
			exploded := at
			gs.Exploded = &exploded
			gs.Status = Lost
			return changed
		}
		gs.RevealedSafe++

		if cur.Adjacent != 0 {
			continue
		}
		gs.forEachNeighbor(at, func(n Coord) {
			next := gs.cell(n)
			if next.Revealed || next.Flagged {
				return
			}
			next.Revealed = true
			stack = append(stack, n)
		})
	}

	gs.checkWin()
	return changed
}

// ToggleFlag flips the flag on an unrevealed cell
func (gs *GameState) ToggleFlag(c Coord) (Outcome, error) {
	out := Outcome{Action: ActionFlag, Coord: c, Status: gs.Status}
	if err := gs.checkCoord(c); err != nil {
		return out, err
	}

	cell := gs.cell(c)
	out.Flagged = cell.Flagged
	if gs.Status.Terminal() || cell.Revealed {
		return out, nil
	}

	cell.Flagged = !cell.Flagged
	if cell.Flagged {
		gs.Flags++
	} else {
		gs.Flags--
	}
	out.Flagged = cell.Flagged
	out.Changed = []Coord{c}
	return out, nil
}

// MassReveal chords on a revealed number: when the number of flagged
// neighbours equals its adjacency count, every unrevealed unflagged neighbour
// is revealed. Misplaced flags still lose the game through Reveal.
func (gs *GameState) MassReveal(c Coord) (Outcome, error) {
	out := Outcome{Action: ActionChord, Coord: c, Status: gs.Status}
	if err := gs.checkCoord(c); err != nil {
		return out, err
	}
	if gs.Status.Terminal() {
		return out, nil
	}

	cell := gs.cell(c)
	if !cell.Revealed || cell.Mine || cell.Adjacent == 0 {
		return out, nil
	}
	flags := gs.countNeighbors(c, func(n *Cell) bool { return n.Flagged })
	if flags != cell.Adjacent {
		return out, nil
	}

	var changed []Coord
	gs.forEachNeighbor(c, func(n Coord) {
		changed = gs.reveal(n, changed)
	})

	out.Changed = changed
	out.Status = gs.Status
	return out, nil
}

// CheckMove reports the error Apply would return for m without touching the board
func (gs *GameState) CheckMove(m Move) error {
	switch m.Action {
	case ActionReveal, ActionFlag, ActionChord:
		return gs.checkCoord(m.Coord)
	default:
		return ErrUnknownAction
	}
}

// Apply dispatches a move to the matching operation
func (gs *GameState) Apply(m Move) (Outcome, error) {
	switch m.Action {
	case ActionReveal:
		return gs.Reveal(m.Coord)
	case ActionFlag:
		return gs.ToggleFlag(m.Coord)
	case ActionChord:
		return gs.MassReveal(m.Coord)
	default:
		return Outcome{Action: m.Action, Coord: m.Coord, Status: gs.Status}, ErrUnknownAction
	}
}

// checkWin ends the game once every safe cell is revealed
func (gs *GameState) checkWin() {
	if gs.Status == InProgress && gs.RevealedSafe == gs.Rows*gs.Cols-gs.MineCount {
		gs.Status = Won
	}
}
