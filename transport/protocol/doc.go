// Package protocol defines the messages exchanged between peers and the
// Xiangqi server.
//
// Every frame is one JSON object:
//
//	{"kind":"MOVE_REQUEST","sender_id":"9b1d…","timestamp":"2024-05-01T10:00:00Z",
//	 "payload":{"gameId":"a1b2c3d4","move":{"from":{"row":6,"col":0},"to":{"row":5,"col":0}}}}
//
// The kind set is closed. Only LOGIN_REQUEST may carry a null sender_id;
// after login the server requires sender_id to equal the player bound to
// the connection.
//
// Usage:
//
//	frame, err := protocol.Encode(playerID, protocol.MoveRequest{GameID: id, Move: mv})
//
//	msg, err := protocol.Decode(frame)
//	payload, err := msg.Unpack()
//	switch p := payload.(type) {
//	case *protocol.MoveRequest:
//		// ...
//	}
package protocol
