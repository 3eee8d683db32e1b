// Package mcp exposes the game to AI agents over the Model Context Protocol.
//
// Client registers one MCP tool per game operation and forwards each call to
// the REST API, so the MCP server can run in its own process (stdio mode) or
// next to the HTTP server. Tool results are plain text: the board is printed
// as a grid with "." for empty cells, followed by score, best score and the
// directions that would change the board.
//
// Tools: create_session, list_sessions, get_session, game_state, move,
// bulk_move, undo, new_game, autoplay_step, move_history, export_game,
// import_game, list_configs, game_instructions.
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal().Err(err).Msg("mcp")
//	}
package mcp
