// Package mcp provides a Model Context Protocol interface to the Xiangqi server.
//
// The Client is a thin proxy: every tool calls the server's HTTP API and
// formats the JSON response as text for an AI agent. Nothing here touches
// the lobby directly, so the same tools work against a local or remote
// server.
//
// MCP Tools:
//   - server_status: Registry sizes, open connections and uptime
//   - list_players: Logged-in players and their status
//   - list_games: Sessions with players, status and result
//   - game_state: Board diagram, side to move and last move of a game
//   - move_history: Paginated moves of a game
//   - analyze_position: Check, checkmate, stalemate and legal moves for a layout
//   - rules: Movement rules and layout notation
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
