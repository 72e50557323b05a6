// Package engine provides the core game logic for Minesweeper.
//
// The engine package implements the game mechanics including:
//   - Random mine placement by rejection sampling
//   - Adjacency counting over the 8-connected grid
//   - Cascading reveal of zero-adjacency regions
//   - Flag toggling and chorded mass reveal
//   - Win and loss detection
//
// Core Types:
//
// GameState is the board: dimensions, mine layout and the per-cell revealed
// and flagged status. Every operation is a method on an explicit GameState
// value, so any number of games can live side by side. GameEngine wraps a
// GameState together with its GameConfig and keeps the move history across
// resets.
//
// Usage:
//
//	gs, err := engine.NewGame(9, 9, 10)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out, err := gs.Reveal(engine.Coord{Row: 4, Col: 4})
//	if err != nil {
//		log.Fatal(err) // only for out-of-bounds coordinates
//	}
//	fmt.Println(out.Status, len(out.Changed))
//
//	view := gs.View()
//
// Views:
//
// Presentation layers must only ever receive CellView and BoardView values.
// A view reports a mine only for revealed cells or once the game is over, and
// an adjacency count only for revealed cells.
//
// Game Rules:
//
// Revealing a mine loses the game. Revealing a cell with no adjacent mines
// reveals its neighbours as well, repeating until the region is bordered by
// numbered cells. Flagged cells are never revealed until unflagged. Chording a
// revealed number whose flagged neighbours match its count reveals every other
// neighbour. The game is won when every non-mine cell is revealed.
package engine
