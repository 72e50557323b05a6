// Package websocket pushes board updates to browsers watching a session.
//
// The package uses a hub-and-spoke model where a central Hub owns every
// connection. Registration, unregistration and broadcasts are all serialized
// through the Hub's Run loop, so callers may broadcast from any goroutine.
//
// Message Protocol:
//
// Clients connect to /ws?session=<id> and only receive. Each message is a
// JSON object:
//
//	{"session_id": "ab12", "event": "reveal", "board": {...}}
//
// where board is the player-facing BoardView (mines are hidden until the
// game ends). A "connected" message carrying the current board is sent
// right after the upgrade.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.BroadcastToSession(sessionID, "reveal", board)
//
// Slow clients whose send buffer fills up are disconnected rather than
// allowed to stall the hub. Cancelling the Run context closes all clients.
package websocket
