package main

import (
	"testing"

	"github.com/wricardo/minesweeper/game/engine"
)

// cornerMines is a 3x4 board that single-cell deductions clear once the
// centre (1,2) is opened.
var cornerMines = []engine.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}}

func newBoard(t *testing.T, rows, cols int, mines []engine.Coord) *engine.GameState {
	t.Helper()
	game, err := engine.NewGame(rows, cols, len(mines), engine.WithMines(mines...))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	return game
}

func mustReveal(t *testing.T, game *engine.GameState, c engine.Coord) {
	t.Helper()
	if _, err := game.Reveal(c); err != nil {
		t.Fatalf("Reveal %s failed: %v", c, err)
	}
}

func TestNextMoves_FlagsForcedMines(t *testing.T) {
	game := newBoard(t, 3, 4, cornerMines)
	mustReveal(t, game, engine.Coord{Row: 1, Col: 2})

	moves := NewStrategy(1).NextMoves(game.View())

	want := []engine.Move{
		{Action: engine.ActionFlag, Coord: engine.Coord{Row: 0, Col: 0}},
		{Action: engine.ActionFlag, Coord: engine.Coord{Row: 1, Col: 0}},
	}
	if len(moves) != len(want) {
		t.Fatalf("Expected %v, got %v", want, moves)
	}
	for i := range want {
		if moves[i] != want[i] {
			t.Errorf("Move %d: expected %s, got %s", i, want[i], moves[i])
		}
	}
}

func TestNextMoves_ChordsSatisfiedNumbers(t *testing.T) {
	game := newBoard(t, 3, 4, cornerMines)
	mustReveal(t, game, engine.Coord{Row: 1, Col: 2})
	for _, m := range cornerMines {
		if _, err := game.ToggleFlag(m); err != nil {
			t.Fatal(err)
		}
	}

	moves := NewStrategy(1).NextMoves(game.View())

	chords := map[engine.Coord]bool{}
	for _, m := range moves {
		if m.Action != engine.ActionChord {
			t.Errorf("Expected only chords, got %s", m)
		}
		chords[m.Coord] = true
	}
	for _, c := range []engine.Coord{{Row: 1, Col: 1}, {Row: 2, Col: 1}} {
		if !chords[c] {
			t.Errorf("Expected chord on %s, got %v", c, moves)
		}
	}

	// Applying the moves clears the board without a guess.
	for _, m := range moves {
		if _, err := game.Apply(m); err != nil {
			t.Fatal(err)
		}
	}
	if game.Status != engine.Won {
		t.Errorf("Expected won, got %s", game.Status)
	}
}

func TestNextMoves_NothingCertain(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *engine.BoardView
	}{
		{"nil board", func(t *testing.T) *engine.BoardView { return nil }},
		{"fresh board", func(t *testing.T) *engine.BoardView {
			return newBoard(t, 3, 3, []engine.Coord{{Row: 0, Col: 0}}).View()
		}},
		{"ambiguous number", func(t *testing.T) *engine.BoardView {
			game := newBoard(t, 3, 3, []engine.Coord{{Row: 0, Col: 0}})
			mustReveal(t, game, engine.Coord{Row: 1, Col: 1})
			return game.View()
		}},
		{"lost game", func(t *testing.T) *engine.BoardView {
			game := newBoard(t, 3, 3, []engine.Coord{{Row: 0, Col: 0}})
			mustReveal(t, game, engine.Coord{Row: 0, Col: 0})
			return game.View()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if moves := NewStrategy(1).NextMoves(tt.setup(t)); len(moves) != 0 {
				t.Errorf("Expected no moves, got %v", moves)
			}
		})
	}
}

func TestNextMoves_CappedAtBulkLimit(t *testing.T) {
	// A column of mines beside a column of numbers: every number whose
	// safe neighbours are open forces the mines beside it. The last safe
	// cell stays hidden so the game is not won.
	rows := engine.MaxBulkMoves + 10
	var mines []engine.Coord
	for r := 0; r < rows; r++ {
		mines = append(mines, engine.Coord{Row: r, Col: 0})
	}
	game := newBoard(t, rows, 2, mines)
	for r := 0; r < rows-1; r++ {
		mustReveal(t, game, engine.Coord{Row: r, Col: 1})
	}

	moves := NewStrategy(1).NextMoves(game.View())
	if len(moves) != engine.MaxBulkMoves {
		t.Errorf("Expected %d moves, got %d", engine.MaxBulkMoves, len(moves))
	}
}

func TestGuess_OpensCentreFirst(t *testing.T) {
	game := newBoard(t, 5, 7, []engine.Coord{{Row: 0, Col: 0}})

	move, ok := NewStrategy(1).Guess(game.View())
	if !ok {
		t.Fatal("Expected a guess")
	}
	want := engine.Move{Action: engine.ActionReveal, Coord: engine.Coord{Row: 2, Col: 3}}
	if move != want {
		t.Errorf("Expected %s, got %s", want, move)
	}
}

func TestGuess_AvoidsRiskyNeighbours(t *testing.T) {
	// (0,1) shows 1 among five hidden neighbours (risk 0.2) while the ten
	// untouched cells share the one mine left (risk 0.1 or less).
	game := newBoard(t, 4, 4, []engine.Coord{{Row: 0, Col: 0}})
	mustReveal(t, game, engine.Coord{Row: 0, Col: 1})

	risky := map[engine.Coord]bool{
		{Row: 0, Col: 0}: true, {Row: 0, Col: 2}: true,
		{Row: 1, Col: 0}: true, {Row: 1, Col: 1}: true, {Row: 1, Col: 2}: true,
	}

	for seed := uint64(0); seed < 20; seed++ {
		move, ok := NewStrategy(seed).Guess(game.View())
		if !ok {
			t.Fatal("Expected a guess")
		}
		if move.Action != engine.ActionReveal {
			t.Errorf("Expected reveal, got %s", move.Action)
		}
		if risky[move.Coord] || move.Coord == (engine.Coord{Row: 0, Col: 1}) {
			t.Errorf("Seed %d guessed %s next to the number", seed, move.Coord)
		}
	}
}

func TestGuess_SkipsFlaggedAndRevealed(t *testing.T) {
	game := newBoard(t, 2, 2, []engine.Coord{{Row: 0, Col: 0}})
	mustReveal(t, game, engine.Coord{Row: 1, Col: 1})
	game.ToggleFlag(engine.Coord{Row: 0, Col: 0})
	game.ToggleFlag(engine.Coord{Row: 0, Col: 1})

	move, ok := NewStrategy(3).Guess(game.View())
	if !ok {
		t.Fatal("Expected a guess")
	}
	if move.Coord != (engine.Coord{Row: 1, Col: 0}) {
		t.Errorf("Expected the only open cell (1,0), got %s", move.Coord)
	}
}

func TestGuess_TerminalBoard(t *testing.T) {
	game := newBoard(t, 2, 2, []engine.Coord{{Row: 0, Col: 0}})
	mustReveal(t, game, engine.Coord{Row: 0, Col: 0})

	if _, ok := NewStrategy(1).Guess(game.View()); ok {
		t.Error("Expected no guess on a finished game")
	}
	if _, ok := NewStrategy(1).Guess(nil); ok {
		t.Error("Expected no guess without a board")
	}
}
