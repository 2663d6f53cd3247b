// Package session provides the player, invitation and session registry.
//
// The session package implements:
//   - Thread-safe player registration with unique names
//   - Invitations with at-most-once acceptance
//   - Session creation with collision-free random ids
//   - Periodic sweeping of stale players, expired invitations and
//     finished or timed-out games
//
// Core Types:
//
// Manager implements service.SessionManager. It owns three maps (players,
// invitations, sessions) behind one RWMutex, so every operation, including
// accepting an invitation that touches two of them, is atomic.
//
// Session Identifiers:
//
// Sessions use 8-character hex IDs drawn from crypto/rand and looked up
// case-insensitively. Players and invitations use UUIDs.
//
// Concurrency:
//
// Each service.Session carries its own mutex that serialises engine access.
// The manager never takes a session lock while holding its own lock, so
// callers may hold a session lock while calling into the manager.
//
// Usage:
//
//	manager := session.NewManager(
//		session.WithLivenessTimeout(2*time.Minute),
//		session.WithInvitationTTL(5*time.Minute),
//	)
//
//	inv, err := manager.CreateInvitation(aliceID, bobID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess, _, err := manager.AcceptInvitation(inv.ID, bobID)
//
//	// From a maintenance loop
//	report := manager.Sweep(time.Now())
package session
