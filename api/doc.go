// Package api provides the HTTP surface of the Xiangqi server.
//
// Play happens over WebSocket; this package mounts the WebSocket handler at
// /ws and adds read-only JSON endpoints for inspecting the lobby and games.
//
// Endpoints:
//
//   - GET /health - Liveness probe
//   - GET /api/status - Registry sizes, open connections and uptime
//   - GET /api/players - Logged-in players
//   - GET /api/games - Sessions (sort=created|activity, order, limit)
//   - GET /api/games/{id} - One session including its board
//   - GET /api/games/{id}/history - Paginated moves (page, limit, order)
//   - GET /api/stats/{username} - Player totals, when a recorder is set
//   - POST /api/analyze - Evaluate a layout for the side to move
//
// Analyze takes ten layout rows and the side to move:
//
//	{
//	  "layout": ["rheagaehr", ".........", ...],
//	  "turn": "red"
//	}
//
// Usage:
//
//	srv := api.NewServer(lobby, hub, api.WithStats(recorder))
//	http.ListenAndServe(":8080", srv)
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status. Lobby errors also carry
// their stable code:
//
//	{
//	  "error": "session not found",
//	  "code": "GAME_NOT_FOUND"
//	}
package api
