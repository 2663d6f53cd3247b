// Package client is a peer-side connector for the Xiangqi server.
//
// It dials the server's WebSocket endpoint, sends typed protocol payloads
// stamped with the logged-in player's id and decodes everything the server
// pushes.
//
// Usage:
//
//	c, err := client.Dial(ctx, "ws://localhost:8080/ws")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	me, err := c.Login(ctx, "alice", "secret")
//	go c.KeepAlive(ctx, 30*time.Second)
//
//	ev, err := c.Expect(ctx, protocol.KindLobbyUpdate)
package client
