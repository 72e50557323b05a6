// Package session keeps Minesweeper games alive between requests.
//
// The session package implements:
//   - Thread-safe session storage with case-insensitive lookup
//   - Random 4-hex-character session IDs
//   - Last-access tracking and expiry cleanup
//   - JSON file persistence, one <sessions>/<id>.json file per game
//
// Core Types:
//
// Manager owns the in-memory sessions. With a SessionPersistence attached it
// saves every new session, loads unknown IDs from disk on Get, and can reload
// or flush everything at startup and shutdown. FilePersistence writes the
// session metadata together with the full engine snapshot (mine layout,
// per-cell state, move history), so a restored game plays on exactly where
// it stopped.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Println(err) // broken files are skipped
//	}
//
//	sess, err := manager.Create("", config)
//	sess, err = manager.Get(sess.ID)
//
// Filesystem Sync:
//
// Deleting a session file removes the game. SyncWithPersistence drops
// in-memory sessions whose file is gone; the server runs it on a ticker.
package session
