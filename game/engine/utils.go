package engine

// CountRevealed counts revealed cells, mines included
func CountRevealed(gs *GameState) int {
	count := 0
	for _, row := range gs.Cells {
		for _, cell := range row {
			if cell.Revealed {
				count++
			}
		}
	}
	return count
}

// CountHidden counts cells that are neither revealed nor flagged
func CountHidden(gs *GameState) int {
	count := 0
	for _, row := range gs.Cells {
		for _, cell := range row {
			if !cell.Revealed && !cell.Flagged {
				count++
			}
		}
	}
	return count
}

// MineDensity returns the fraction of cells holding a mine
func MineDensity(gs *GameState) float64 {
	return float64(gs.MineCount) / float64(gs.Rows*gs.Cols)
}

// Openings counts the connected regions of zero-adjacency safe cells. Each
// opening is cleared by a single reveal.
func Openings(gs *GameState) int {
	seen := make([][]bool, gs.Rows)
	for r := range seen {
		seen[r] = make([]bool, gs.Cols)
	}

	openings := 0
	for r := 0; r < gs.Rows; r++ {
		for c := 0; c < gs.Cols; c++ {
			at := Coord{Row: r, Col: c}
			if seen[r][c] || !isZero(gs, at) {
				continue
			}
			openings++
			markOpening(gs, at, seen)
		}
	}
	return openings
}

// ThreeBV returns the Bechtel's Board Benchmark Value: the minimum number of
// reveals needed to clear the board without chording. It is the number of
// openings plus every numbered safe cell that does not border an opening.
func ThreeBV(gs *GameState) int {
	seen := make([][]bool, gs.Rows)
	for r := range seen {
		seen[r] = make([]bool, gs.Cols)
	}

	bv := 0
	for r := 0; r < gs.Rows; r++ {
		for c := 0; c < gs.Cols; c++ {
			at := Coord{Row: r, Col: c}
			if seen[r][c] || !isZero(gs, at) {
				continue
			}
			bv++
			markOpening(gs, at, seen)
		}
	}
	for r := 0; r < gs.Rows; r++ {
		for c := 0; c < gs.Cols; c++ {
			if !seen[r][c] && !gs.Cells[r][c].Mine {
				bv++
			}
		}
	}
	return bv
}

func isZero(gs *GameState, c Coord) bool {
	cell := gs.Cells[c.Row][c.Col]
	return !cell.Mine && cell.Adjacent == 0
}

// markOpening marks a zero region and its numbered border as seen
func markOpening(gs *GameState, start Coord, seen [][]bool) {
	seen[start.Row][start.Col] = true
	stack := []Coord{start}
	for len(stack) > 0 {
		at := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !isZero(gs, at) {
			continue
		}
		gs.forEachNeighbor(at, func(n Coord) {
			if seen[n.Row][n.Col] {
				return
			}
			seen[n.Row][n.Col] = true
			stack = append(stack, n)
		})
	}
}
