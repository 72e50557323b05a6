package mcp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/wricardo/minesweeper/game/engine"
	"github.com/wricardo/minesweeper/game/service"
)

// cellChar maps a cell view to its grid character
func cellChar(cv engine.CellView) string {
	switch {
	case cv.Exploded:
		return "X"
	case cv.Flagged:
		return "F"
	case cv.Revealed && cv.Adjacent == 0:
		return "."
	case cv.Revealed:
		return strconv.Itoa(cv.Adjacent)
	case cv.Mine:
		return "*"
	default:
		return "#"
	}
}

// formatBoard renders a board view as a text grid with row and column indices
func formatBoard(board *engine.BoardView) string {
	if board == nil {
		return "Board: unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s | Board: %dx%d | Mines: %d | Mines left: %d | Revealed: %d | Safe cells left: %d\n\n",
		board.Status, board.Rows, board.Cols, board.Mines, board.MinesRemaining, board.Revealed, board.SafeRemaining)

	rowWidth := len(strconv.Itoa(max(board.Rows-1, 0)))
	colWidth := len(strconv.Itoa(max(board.Cols-1, 0)))

	b.WriteString(strings.Repeat(" ", rowWidth+1))
	for c := 0; c < board.Cols; c++ {
		fmt.Fprintf(&b, " %*d", colWidth, c)
	}
	b.WriteString("\n")

	for r, row := range board.Cells {
		fmt.Fprintf(&b, "%*d ", rowWidth, r)
		for _, cv := range row {
			fmt.Fprintf(&b, " %*s", colWidth, cellChar(cv))
		}
		b.WriteString("\n")
	}

	switch board.Status {
	case engine.Won:
		b.WriteString("\n🏆 VICTORY! Every safe cell is revealed.\n")
	case engine.Lost:
		b.WriteString("\n💥 GAME OVER - a mine was revealed. Use reset_game to play again.\n")
	}
	return b.String()
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\nMoves: %d\nDuration: %s\n\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339),
		session.TotalMoves, (time.Duration(session.DurationMs) * time.Millisecond).String())
	b.WriteString(formatBoard(session.Board))
	return b.String()
}

func formatEvents(events []service.GameEvent) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Events:\n")
	for _, e := range events {
		fmt.Fprintf(&b, "- [%s] %s\n", e.Type, e.Message)
	}
	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder

	mark := "✓"
	if !result.Success {
		mark = "✗ (no change)"
	}
	fmt.Fprintf(&b, "%s %s %s\n", result.Action, result.Coord, mark)
	if result.Message != "" {
		b.WriteString(result.Message + "\n")
	}
	if len(result.Changed) > 0 {
		fmt.Fprintf(&b, "Changed cells: %d\n", len(result.Changed))
	}
	b.WriteString(formatEvents(result.Events))
	b.WriteString("\n")
	b.WriteString(formatBoard(result.Board))
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder

	requested := result.RequestedMoves
	if requested == 0 {
		requested = result.MovesExecuted
	}
	fmt.Fprintf(&b, "Session %s: executed %d/%d moves\n", sessionID, result.MovesExecuted, requested)
	if result.Truncated {
		fmt.Fprintf(&b, "Only the first %d moves were accepted\n", result.Limit)
	}

	for _, step := range result.Steps {
		mark := "✓"
		if !step.Effective {
			mark = "·"
		}
		fmt.Fprintf(&b, "%2d. %s %s %s changed=%d status=%s\n",
			step.Idx, mark, step.Action, step.Coord, step.Changed, step.Status)
	}

	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "\nStopped (%s)", result.StopReasonCode)
		if result.StoppedOnMove > 0 {
			fmt.Fprintf(&b, " on move %d", result.StoppedOnMove)
		}
		if result.StoppedReason != "" {
			fmt.Fprintf(&b, ": %s", result.StoppedReason)
		}
		b.WriteString("\n")
	}
	if result.Message != "" {
		b.WriteString(result.Message + "\n")
	}

	b.WriteString("\n")
	b.WriteString(formatBoard(result.Board))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) - Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	if len(history.Moves) == 0 {
		b.WriteString("(no moves)\n")
	}
	for _, move := range history.Moves {
		mark := "✓"
		if !move.Effective {
			mark = "·"
		}
		fmt.Fprintf(&b, "%d. %s %s %s changed=%d status=%s\n",
			move.MoveNumber, move.Action, move.Coord, mark, move.Changed, move.Status)
	}

	if history.HasNext {
		fmt.Fprintf(&b, "\nMore moves on page %d\n", history.Page+1)
	}
	return b.String()
}

func formatStats(stats *service.Stats, recent []*service.GameRecord) string {
	var b strings.Builder
	if stats == nil {
		return "No statistics available"
	}

	scope := "all presets"
	if stats.ConfigID != "" {
		scope = stats.ConfigID
	}
	fmt.Fprintf(&b, "Statistics (%s)\n", scope)
	fmt.Fprintf(&b, "Played: %d | Won: %d | Lost: %d | Win rate: %.1f%%\n",
		stats.Played, stats.Won, stats.Lost, stats.WinRate*100)
	if stats.BestWinMs > 0 {
		fmt.Fprintf(&b, "Best win: %s\n", time.Duration(stats.BestWinMs)*time.Millisecond)
	}
	fmt.Fprintf(&b, "Average moves: %.1f\n", stats.AvgMoves)

	if len(recent) > 0 {
		b.WriteString("\nRecent games:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "- %s %s %dx%d/%d %s in %d moves (%s)\n",
				r.FinishedAt.Format("2006-01-02 15:04"), r.ConfigID, r.Rows, r.Cols, r.Mines,
				r.Status, r.Moves, time.Duration(r.DurationMs)*time.Millisecond)
		}
	}
	return b.String()
}

// describeCell explains a cell and summarizes its neighbourhood
func describeCell(board *engine.BoardView, cell engine.CellView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell (%d,%d): '%s' %s\n", cell.Row, cell.Col, cellChar(cell), cell.State)

	switch {
	case cell.Exploded:
		b.WriteString("This mine was revealed and ended the game.\n")
	case cell.Flagged && cell.WrongFlag:
		b.WriteString("Flagged, but there was no mine here.\n")
	case cell.Flagged:
		b.WriteString("Flagged as a suspected mine. Flag it again to remove the flag.\n")
	case cell.Revealed && cell.Adjacent == 0:
		b.WriteString("No adjacent mines.\n")
	case cell.Revealed:
		fmt.Fprintf(&b, "%d adjacent mine(s).\n", cell.Adjacent)
	case cell.Mine:
		b.WriteString("A mine (shown because the game is over).\n")
	default:
		b.WriteString("Hidden.\n")
	}

	var flagged, hidden []string
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, c := cell.Row+dr, cell.Col+dc
			if r < 0 || r >= len(board.Cells) || c < 0 || c >= len(board.Cells[r]) {
				continue
			}
			n := board.Cells[r][c]
			switch {
			case n.Flagged:
				flagged = append(flagged, engine.Coord{Row: r, Col: c}.String())
			case !n.Revealed:
				hidden = append(hidden, engine.Coord{Row: r, Col: c}.String())
			}
		}
	}

	fmt.Fprintf(&b, "Flagged neighbours (%d): %s\n", len(flagged), strings.Join(flagged, " "))
	fmt.Fprintf(&b, "Hidden neighbours (%d): %s\n", len(hidden), strings.Join(hidden, " "))

	if cell.Revealed && cell.Adjacent > 0 && board.Status == engine.InProgress {
		switch {
		case len(flagged) == cell.Adjacent && len(hidden) > 0:
			b.WriteString("Chord possible: flags match the number, the hidden neighbours are safe if the flags are right.\n")
		case len(flagged)+len(hidden) == cell.Adjacent && len(hidden) > 0:
			b.WriteString("Every hidden neighbour must be a mine.\n")
		}
	}
	return b.String()
}

var actionAliases = map[string]engine.Action{
	"r":      engine.ActionReveal,
	"reveal": engine.ActionReveal,
	"f":      engine.ActionFlag,
	"flag":   engine.ActionFlag,
	"c":      engine.ActionChord,
	"chord":  engine.ActionChord,
}

// parseMove accepts "reveal 3 4" style strings (with r/f/c shorthands) or
// objects with action, row and col
func parseMove(raw interface{}) (engine.Move, error) {
	var action string
	var row, col interface{}

	switch v := raw.(type) {
	case string:
		fields := strings.FieldsFunc(v, func(r rune) bool {
			return r == ' ' || r == ',' || r == '(' || r == ')'
		})
		if len(fields) != 3 {
			return engine.Move{}, fmt.Errorf("expected \"action row col\", got %q", v)
		}
		action, row, col = fields[0], fields[1], fields[2]
	case map[string]interface{}:
		action = cast.ToString(v["action"])
		row, col = v["row"], v["col"]
		if coord, ok := v["coord"].(map[string]interface{}); ok {
			row, col = coord["row"], coord["col"]
		}
		if row == nil || col == nil {
			return engine.Move{}, fmt.Errorf("row and col are required")
		}
	default:
		return engine.Move{}, fmt.Errorf("unsupported move %v", raw)
	}

	a, ok := actionAliases[strings.ToLower(strings.TrimSpace(action))]
	if !ok {
		return engine.Move{}, fmt.Errorf("%w: %q", engine.ErrUnknownAction, action)
	}
	r, err := cast.ToIntE(row)
	if err != nil {
		return engine.Move{}, fmt.Errorf("invalid row: %w", err)
	}
	c, err := cast.ToIntE(col)
	if err != nil {
		return engine.Move{}, fmt.Errorf("invalid col: %w", err)
	}
	return engine.Move{Action: a, Coord: engine.Coord{Row: r, Col: c}}, nil
}
