// Package mcp exposes Minesweeper to AI agents as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes a REST call against a
// running API server, and the JSON answer is rendered as text for the agent.
// Calls that cannot reach the server are retried with exponential backoff;
// API errors are returned to the agent as tool errors.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - board: the board as a text grid
//   - reveal, flag, chord: single moves on (row, col)
//   - bulk_moves: up to 50 moves such as "f 0 1" or "reveal 2 2"
//   - reset_game, move_history
//   - list_configs, stats
//   - game_instructions, describe_cell
//
// Boards are rendered with row and column indices:
//
//	     0 1 2
//	 0   1 # #
//	 1   # F #
//	 2   # # #
//
// where # is hidden, F flagged, . an empty revealed cell, 1-8 a revealed
// number, * a mine (after the game ends) and X the mine that was hit.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.WaitReady(ctx); err != nil {
//		return err
//	}
//	server.ServeStdio(client.GetMCPServer())
package mcp
