// Package service provides the business logic layer for the Minesweeper server.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration (difficulty preset) loading
//   - Move processing: reveal, flag, chord and bulk moves
//   - Move history tracking
//   - Recording finished games for statistics
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages difficulty presets.
// RecordStore keeps finished games.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine, providing session isolation and serializing every operation
// on a board. Each session owns its own engine. Transports only ever receive
// board and cell views, never the mine layout of a running game.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "beginner")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Reveal(ctx, info.ID, engine.Coord{Row: 3, Col: 4})
//
// Events:
//
// Move results carry events (reveal, cascade, flag, unflag, chord, won, lost,
// reset) together with the views of every cell the move changed, so a client
// can re-render incrementally.
package service
