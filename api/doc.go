// Package api provides the HTTP REST API for Minesweeper sessions.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                 create a session ({"config_id": "expert"})
//   - GET    /api/sessions                 list sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}            session info with the current board
//   - DELETE /api/sessions/{id}            delete a session
//
// Board:
//   - GET /api/sessions/{id}/board             full board view
//   - GET /api/sessions/{id}/cells/{row}/{col} one cell view
//   - GET /api/sessions/{id}/history           paginated move history (?page&limit&order)
//
// Moves:
//   - POST /api/sessions/{id}/reveal  {"row": 3, "col": 4, "reset": false}
//   - POST /api/sessions/{id}/flag    same body, toggles a flag
//   - POST /api/sessions/{id}/chord   same body, mass-reveals around a satisfied number
//   - POST /api/sessions/{id}/moves   {"moves": [{"action": "flag", "coord": {"row": 0, "col": 1}}]}
//   - POST /api/sessions/{id}/reset   new mine layout, same preset
//
// Configuration and records:
//   - GET  /api/configs         list presets
//   - GET  /api/configs/{name}  one preset
//   - POST /api/configs         save a preset ({"name", "description", "rows", "cols", "mines", "format": "json|yaml"})
//   - GET  /api/stats           finished-game statistics (?config=beginner&recent=10)
//   - GET  /api/health
//
// WebSocket:
//   - GET /ws?session={id}  receives {"session_id", "event", "board"} after every change
//
// Boards are always player views: mine positions are only present once the
// game is over.
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the error:
//
//	{"error": "reveal (9,9): coordinate out of range - (9,9) - board 8x8"}
//
// Invalid coordinates and configurations are 400, unknown sessions and
// presets are 404, a server without a records database answers /api/stats
// with 503, and anything else is 500.
package api
