// Package engine provides the Xiangqi rules and the per-game state machine.
//
// The engine package implements:
//   - The board and piece model with per-kind movement geometry
//   - Move validation, check, checkmate and stalemate detection
//   - Flying-general detection under a configurable policy
//   - Special draws (no-capture limit, threefold repetition)
//   - Snapshot and rollback around every applied move
//   - Synchronous, ordered event delivery to listeners
//
// Core Types:
//
// Board is a 10x9 array of Piece values; a piece's position is the index of
// the cell holding it and is never stored twice. GameState owns a Board, the
// side to move, a status and the append-only move history. Rules validates
// moves against a state. Engine ties them together for one game.
//
// Usage:
//
//	eng, err := engine.NewEngine("alice", "bob")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	stop := eng.Subscribe(engine.ListenerFunc(func(ev engine.Event) {
//		log.Printf("%s: %s", ev.Type, ev.Reason)
//	}))
//	defer stop()
//
//	from := engine.MustPosition(6, 0)
//	to := engine.MustPosition(5, 0)
//	err = eng.ExecuteMove(engine.NewMove(from, to, engine.Piece{Kind: engine.Soldier, Side: engine.Red}))
//
// Coordinates:
//
// Row 0 is Black's back rank and row 9 is Red's. Red moves first and its
// soldiers advance toward row 0. Layout notation renders the board as ten
// strings of nine characters: uppercase for Red, lowercase for Black,
// G/A/E/H/R/C/S for general, advisor, elephant, horse, chariot, cannon and
// soldier, and '.' for an empty point.
//
// Concurrency:
//
// An Engine is not safe for concurrent use. Callers serialise moves per game;
// separate games share nothing.
package engine
