// Package records stores finished games in SQLite and computes per-preset
// statistics from them.
//
// A record is written once, when a session's game transitions to won or
// lost. Stats aggregates played/won/lost counts, win rate, the fastest win
// and the average number of moves, optionally filtered by config ID.
package records
