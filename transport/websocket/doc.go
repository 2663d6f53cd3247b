// Package websocket provides the connection server for the Xiangqi server.
//
// The websocket package implements:
//   - Upgrading HTTP requests to WebSocket with a connection cap
//   - One reader and one writer goroutine per connection
//   - Login correlated to the originating connection
//   - Routing of every inbound message kind to the lobby service
//   - Delivery of service notifications to the affected players
//   - Liveness, maintenance and teardown
//
// Architecture:
//
// The Hub owns the set of connections. Readers hand finished connections
// to the hub's Run loop, which also coalesces LOBBY_UPDATE broadcasts and
// runs maintenance on a ticker. The Hub implements service.Notifier, so all
// game events reach peers through the same bounded per-connection queues.
//
// Liveness:
//
// A connection's read deadline is the liveness timeout and is pushed out by
// every frame and every pong. Maintenance also closes connections silent
// for longer than the timeout and sweeps the registry. A connection whose
// outbound queue overflows is closed instead of blocking the sender.
//
// Usage:
//
//	hub := websocket.NewHub(lobby, websocket.DefaultOptions())
//	go hub.Run(ctx)
//
//	router.Handle("/ws", hub)
//
// Connection Lifecycle:
//
// 1. Peer connects; the hub assigns a connection id or answers SERVER_FULL
// 2. Peer sends LOGIN_REQUEST and the connection is bound to the player
// 3. Every later frame must carry that player's id as sender_id
// 4. On close the player is removed and their running games are abandoned
package websocket
