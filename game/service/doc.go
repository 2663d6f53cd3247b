// Package service provides the lobby and game logic layer for the Xiangqi server.
//
// The service package implements:
//   - Login, logout and disconnect handling
//   - Invitations and game creation
//   - Move processing with turn and participant checks
//   - Resignation, abandonment and timeouts
//   - Paginated move history
//   - Result recording through a stats.Recorder
//
// Core Interfaces:
//
// LobbyService is the main service interface used by every transport.
// SessionManager is the registry of players, invitations and sessions.
// Notifier receives the outbound events the service produces; the websocket
// server implements it and turns each call into protocol messages.
//
// Architecture:
//
// The service layer sits between the transports (WebSocket, HTTP, MCP) and
// the engine. Each session owns one engine and a mutex; the service holds
// that mutex for the whole of any engine call, so moves within one game are
// serialised while different games run independently.
//
// Errors:
//
// Failures carry a Code that is sent to peers unchanged. Use CodeOf to map
// any error returned by this package to its code.
//
// Usage:
//
//	manager := session.NewManager(session.WithInvitationTTL(5 * time.Minute))
//	svc := service.NewLobbyService(manager, service.WithRecorder(recorder))
//
//	alice, _ := svc.Login(ctx, "alice", "secret")
//	bob, _ := svc.Login(ctx, "bob", "secret")
//
//	inv, _ := svc.Invite(ctx, alice.ID, bob.ID)
//	game, _ := svc.Respond(ctx, bob.ID, inv.ID, true)
//
//	res, err := svc.Move(ctx, alice.ID, game.ID, engine.Move{
//		From: engine.MustPosition(6, 0),
//		To:   engine.MustPosition(5, 0),
//	})
package service
