// Package service provides the business logic layer for the 2048 game server.
//
// The service package implements:
//   - Multi-session game management
//   - Move processing with undo history and best-score tracking
//   - Import and export of game records
//   - Auto-play through the autoplay strategies
//   - Event delivery to observers (websocket hub, message bus)
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, persistence and lifecycle.
// ConfigManager resolves rule variants. Observer receives game events.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. The engine only knows about boards and scores; everything
// that reacts to a move (undo snapshots, best score, autosave, events) is done
// here, after the engine has accepted the move.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "left")
//
// Session Management:
//
// Sessions are identified by unique 4-character IDs and hold their own engine,
// undo stack and best score. Multiple sessions run independently.
package service
