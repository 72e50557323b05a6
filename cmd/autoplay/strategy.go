package main

import (
	"math/rand/v2"

	"github.com/wricardo/minesweeper/game/engine"
)

// Strategy picks moves from what a player can see on the board. Certain
// moves come from single-cell deductions; when none exist it guesses the
// hidden cell least likely to hold a mine.
type Strategy struct {
	rng *rand.Rand
}

func NewStrategy(seed uint64) *Strategy {
	return &Strategy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NextMoves returns every move the board proves safe: flags on hidden cells
// that must be mines, then chords on numbers whose mines are all flagged.
// Flags come first so a chord in the same batch can rely on them.
func (s *Strategy) NextMoves(board *engine.BoardView) []engine.Move {
	if board == nil || board.Status.Terminal() {
		return nil
	}

	flagged := make(map[engine.Coord]bool)
	var flags, chords []engine.Move

	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			cell := board.Cells[r][c]
			if !cell.Revealed || cell.Adjacent == 0 {
				continue
			}

			hidden, known := s.neighbours(board, r, c)
			if len(hidden) == 0 {
				continue
			}

			switch {
			case cell.Adjacent == known:
				chords = append(chords, engine.Move{Action: engine.ActionChord, Coord: engine.Coord{Row: r, Col: c}})
			case cell.Adjacent-known == len(hidden):
				for _, h := range hidden {
					if !flagged[h] {
						flagged[h] = true
						flags = append(flags, engine.Move{Action: engine.ActionFlag, Coord: h})
					}
				}
			}
		}
	}

	moves := append(flags, chords...)
	if len(moves) > engine.MaxBulkMoves {
		moves = moves[:engine.MaxBulkMoves]
	}
	return moves
}

// Guess returns a reveal on the hidden cell with the lowest estimated mine
// probability. The first move of a game opens the centre of the board.
func (s *Strategy) Guess(board *engine.BoardView) (engine.Move, bool) {
	if board == nil || board.Status.Terminal() {
		return engine.Move{}, false
	}
	if board.Revealed == 0 {
		centre := engine.Coord{Row: board.Rows / 2, Col: board.Cols / 2}
		if !board.Cells[centre.Row][centre.Col].Flagged {
			return engine.Move{Action: engine.ActionReveal, Coord: centre}, true
		}
	}

	risk := s.risk(board)
	var best []engine.Coord
	bestRisk := 2.0
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			cell := board.Cells[r][c]
			if cell.Revealed || cell.Flagged {
				continue
			}
			at := engine.Coord{Row: r, Col: c}
			p := risk[at]
			switch {
			case p < bestRisk:
				bestRisk = p
				best = []engine.Coord{at}
			case p == bestRisk:
				best = append(best, at)
			}
		}
	}
	if len(best) == 0 {
		return engine.Move{}, false
	}
	return engine.Move{Action: engine.ActionReveal, Coord: best[s.rng.IntN(len(best))]}, true
}

// risk estimates a mine probability for every hidden cell: the highest local
// ratio of unflagged mines to hidden neighbours among bordering numbers, or
// the density of the remaining mines for cells no number touches.
func (s *Strategy) risk(board *engine.BoardView) map[engine.Coord]float64 {
	hiddenTotal := 0
	for _, row := range board.Cells {
		for _, cell := range row {
			if !cell.Revealed && !cell.Flagged {
				hiddenTotal++
			}
		}
	}

	global := 0.0
	if hiddenTotal > 0 && board.MinesRemaining > 0 {
		global = float64(board.MinesRemaining) / float64(hiddenTotal)
	}

	risk := make(map[engine.Coord]float64)
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			cell := board.Cells[r][c]
			if !cell.Revealed || cell.Adjacent == 0 {
				continue
			}
			hidden, flags := s.neighbours(board, r, c)
			if len(hidden) == 0 {
				continue
			}
			local := float64(cell.Adjacent-flags) / float64(len(hidden))
			for _, h := range hidden {
				if p, ok := risk[h]; !ok || local > p {
					risk[h] = local
				}
			}
		}
	}

	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			at := engine.Coord{Row: r, Col: c}
			if _, ok := risk[at]; !ok {
				risk[at] = global
			}
		}
	}
	return risk
}

// neighbours lists the hidden unflagged neighbours of (r, c) and counts the
// flagged ones
func (s *Strategy) neighbours(board *engine.BoardView, r, c int) ([]engine.Coord, int) {
	var hidden []engine.Coord
	flags := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			nr, nc := r+dr, c+dc
			if (dr == 0 && dc == 0) || nr < 0 || nc < 0 || nr >= board.Rows || nc >= board.Cols {
				continue
			}
			n := board.Cells[nr][nc]
			switch {
			case n.Flagged:
				flags++
			case !n.Revealed:
				hidden = append(hidden, engine.Coord{Row: nr, Col: nc})
			}
		}
	}
	return hidden, flags
}
