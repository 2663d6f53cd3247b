package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine("alice", "bob", opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func mustLayout(t *testing.T, rows ...string) Board {
	t.Helper()
	b, err := ParseLayout(rows)
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	return b
}

func TestNewEngine(t *testing.T) {
	e := newTestEngine(t)
	state := e.State()

	if state.Status != StatusInProgress {
		t.Errorf("Expected status %s, got %s", StatusInProgress, state.Status)
	}
	if state.Turn != Red {
		t.Errorf("Expected red to move first, got %s", state.Turn)
	}
	if state.CurrentPlayer() != "alice" {
		t.Errorf("Expected alice to move, got %s", state.CurrentPlayer())
	}
	if len(state.History) != 0 {
		t.Errorf("Expected empty history, got %d moves", len(state.History))
	}
	if e.Result() != nil {
		t.Error("Expected no result for a fresh game")
	}
}

func TestNewEngine_InvalidPlayers(t *testing.T) {
	cases := [][2]string{{"", "bob"}, {"alice", ""}, {"alice", "alice"}}
	for _, c := range cases {
		if _, err := NewEngine(c[0], c[1]); !errors.Is(err, ErrInvalidPlayers) {
			t.Errorf("NewEngine(%q, %q): expected ErrInvalidPlayers, got %v", c[0], c[1], err)
		}
	}
}

func TestNewEngine_RejectsBrokenBoard(t *testing.T) {
	var b Board
	b.Set(pos(9, 4), red(General))
	if _, err := NewEngine("alice", "bob", WithBoard(b)); err == nil {
		t.Error("Expected an error for a board without a black general")
	}
}

func TestExecuteMove_TurnAlternation(t *testing.T) {
	e := newTestEngine(t)

	if err := e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), red(Soldier))); err != nil {
		t.Fatalf("first move: %v", err)
	}

	state := e.State()
	if !state.Board.At(pos(6, 0)).IsZero() {
		t.Error("Expected (6,0) to be empty")
	}
	if got := state.Board.At(pos(5, 0)); got != red(Soldier) {
		t.Errorf("Expected red soldier on (5,0), got %v", got)
	}
	if state.CurrentPlayer() != "bob" {
		t.Errorf("Expected bob to move, got %s", state.CurrentPlayer())
	}
	if len(state.History) != 1 {
		t.Fatalf("Expected 1 move in history, got %d", len(state.History))
	}

	err := e.ExecuteMove(NewMove(pos(6, 2), pos(5, 2), red(Soldier)))
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("Expected ErrNotYourTurn, got %v", err)
	}
	if err.Error() != "not your turn" {
		t.Errorf("Expected reason %q, got %q", "not your turn", err.Error())
	}
	if n := len(e.State().History); n != 1 {
		t.Errorf("Expected history to stay at 1, got %d", n)
	}
}

func TestExecuteMove_RejectionLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t)
	before := e.State()

	moves := []Move{
		NewMove(pos(5, 0), pos(4, 0), red(Soldier)),
		NewMove(pos(6, 0), pos(6, 1), red(Soldier)),
		NewMove(pos(3, 0), pos(4, 0), black(Soldier)),
		NewMove(pos(9, 4), pos(8, 5), red(General)),
	}
	for _, m := range moves {
		if err := e.ExecuteMove(m); err == nil {
			t.Errorf("Expected %v to be rejected", m)
		}
	}

	after := e.State()
	if after.Board != before.Board || after.Turn != before.Turn || len(after.History) != 0 {
		t.Error("rejected moves must not change the state")
	}
}

func TestExecuteMove_RecordsCaptureAndClock(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := newTestEngine(t, WithClock(func() time.Time { return fixed }))

	// cannon takes horse over the black cannon
	if err := e.ExecuteMove(Move{From: pos(7, 1), To: pos(0, 1), Piece: red(Cannon)}); err != nil {
		t.Fatalf("capture: %v", err)
	}
	last := e.State().LastMove()
	if last == nil || last.Captured == nil || *last.Captured != black(Horse) {
		t.Fatalf("Expected captured black horse, got %+v", last)
	}
	if !last.Timestamp.Equal(fixed) {
		t.Errorf("Expected timestamp %v, got %v", fixed, last.Timestamp)
	}
	if e.State().PliesSinceCapture != 0 {
		t.Errorf("Expected capture to reset the no-capture counter")
	}
}

func TestExecuteMove_IgnoresCallerTimestamp(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := newTestEngine(t, WithClock(func() time.Time { return fixed }))

	claimed := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	move := Move{From: pos(6, 0), To: pos(5, 0), Piece: red(Soldier), Timestamp: claimed}
	if err := e.ExecuteMove(move); err != nil {
		t.Fatal(err)
	}
	if got := e.State().LastMove().Timestamp; !got.Equal(fixed) {
		t.Errorf("Expected engine timestamp %v, got %v", fixed, got)
	}
}

func TestExecuteMove_Checkmate(t *testing.T) {
	b := mustLayout(t,
		"...g.....",
		"........R",
		".........",
		".........",
		".......R.",
		".........",
		".........",
		".........",
		".........",
		"....G....",
	)
	e := newTestEngine(t, WithBoard(b))

	var events []EventType
	e.Subscribe(ListenerFunc(func(ev Event) { events = append(events, ev.Type) }))

	if err := e.ExecuteMove(Move{From: pos(4, 7), To: pos(0, 7), Piece: red(Chariot)}); err != nil {
		t.Fatalf("mating move: %v", err)
	}

	if e.Status() != StatusCheckmate {
		t.Fatalf("Expected checkmate, got %s", e.Status())
	}
	result := e.Result()
	if result.Winner != "alice" || result.Loser != "bob" {
		t.Errorf("Expected alice to beat bob, got %+v", result)
	}
	want := []EventType{EventGameEnded, EventMoveExecuted, EventStateChanged}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("Expected events %v, got %v", want, events)
	}

	if err := e.ExecuteMove(Move{From: pos(0, 3), To: pos(0, 4), Piece: black(General)}); !errors.Is(err, ErrGameOver) {
		t.Errorf("Expected ErrGameOver after mate, got %v", err)
	}
	if e.LegalMoves() != nil {
		t.Error("Expected no legal moves after the game ended")
	}
}

func TestExecuteMove_StalemateLosesForStalematedSide(t *testing.T) {
	b := mustLayout(t,
		"...g.....",
		".........",
		"........R",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
		"....G....",
	)
	e := newTestEngine(t, WithBoard(b))

	if err := e.ExecuteMove(Move{From: pos(2, 8), To: pos(1, 8), Piece: red(Chariot)}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if e.Status() != StatusStalemate {
		t.Fatalf("Expected stalemate, got %s", e.Status())
	}
	if r := e.Result(); r.Winner != "alice" || r.IsDraw() {
		t.Errorf("Expected alice to win by stalemate, got %+v", r)
	}
}

func TestExecuteMove_CheckStatus(t *testing.T) {
	b := mustLayout(t,
		".........",
		"....g....",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
		"........R",
		"...G.....",
	)
	e := newTestEngine(t, WithBoard(b))

	if err := e.ExecuteMove(Move{From: pos(8, 8), To: pos(8, 4), Piece: red(Chariot)}); err != nil {
		t.Fatalf("checking move: %v", err)
	}
	if e.Status() != StatusCheck {
		t.Fatalf("Expected status %s, got %s", StatusCheck, e.Status())
	}
	if err := e.ExecuteMove(Move{From: pos(1, 4), To: pos(1, 3), Piece: black(General)}); !errors.Is(err, ErrIllegalGeometry) {
		t.Errorf("Expected the general to be barred from facing, got %v", err)
	}
	if err := e.ExecuteMove(Move{From: pos(1, 4), To: pos(2, 4), Piece: black(General)}); !errors.Is(err, ErrIllegalGeometry) {
		t.Errorf("Expected the general to be barred from an attacked square, got %v", err)
	}
	if err := e.ExecuteMove(Move{From: pos(1, 4), To: pos(1, 5), Piece: black(General)}); err != nil {
		t.Errorf("Expected the escape to (1,5), got %v", err)
	}
	if e.Status() != StatusInProgress {
		t.Errorf("Expected check to be lifted, got %s", e.Status())
	}
}

func TestExecuteMove_FlyingGeneral(t *testing.T) {
	b := mustLayout(t,
		"....g....",
		".........",
		".........",
		".........",
		".........",
		"....H....",
		".........",
		".........",
		".........",
		"....G....",
	)
	move := Move{From: pos(5, 4), To: pos(3, 3), Piece: red(Horse)}

	t.Run("prevent", func(t *testing.T) {
		e := newTestEngine(t, WithBoard(b))
		if err := e.ExecuteMove(move); !errors.Is(err, ErrSelfCheck) {
			t.Errorf("Expected ErrSelfCheck, got %v", err)
		}
		if e.Status() != StatusInProgress {
			t.Errorf("Expected game to continue, got %s", e.Status())
		}
	})

	t.Run("penalize", func(t *testing.T) {
		e := newTestEngine(t, WithBoard(b), WithFlyingGeneralPolicy(FlyingGeneralPenalize))
		if err := e.ExecuteMove(move); err != nil {
			t.Fatalf("Expected move to be played, got %v", err)
		}
		if e.Status() != StatusDraw {
			t.Fatalf("Expected draw status, got %s", e.Status())
		}
		r := e.Result()
		if r.Winner != "bob" || r.Loser != "alice" {
			t.Errorf("Expected bob to win the penalty, got %+v", r)
		}
		if r.Status != StatusDraw || r.IsDraw() {
			t.Errorf("Expected a draw status that credits a winner, got %+v", r)
		}
	})
}

// shuffle plays chariot moves back and forth on the opening board,
// continuing the cycle from the current ply
func shuffle(t *testing.T, e *Engine, plies int) error {
	t.Helper()
	seq := []Move{
		{From: pos(9, 0), To: pos(8, 0), Piece: red(Chariot)},
		{From: pos(0, 0), To: pos(1, 0), Piece: black(Chariot)},
		{From: pos(8, 0), To: pos(9, 0), Piece: red(Chariot)},
		{From: pos(1, 0), To: pos(0, 0), Piece: black(Chariot)},
	}
	start := len(e.State().History)
	for i := start; i < start+plies; i++ {
		if err := e.ExecuteMove(seq[i%len(seq)]); err != nil {
			return fmt.Errorf("ply %d: %w", i+1, err)
		}
	}
	return nil
}

func TestExecuteMove_NoCaptureDraw(t *testing.T) {
	e := newTestEngine(t, WithDrawPlyLimit(4))
	if err := shuffle(t, e, 3); err != nil {
		t.Fatal(err)
	}
	if e.Status() != StatusInProgress {
		t.Fatalf("Expected game in progress after 3 plies, got %s", e.Status())
	}
	if err := shuffle(t, e, 1); err != nil {
		t.Fatal(err)
	}
	if e.Status() != StatusDraw {
		t.Fatalf("Expected draw, got %s", e.Status())
	}
	if !e.Result().IsDraw() {
		t.Errorf("Expected no winner, got %+v", e.Result())
	}
}

func TestExecuteMove_RepetitionDraw(t *testing.T) {
	e := newTestEngine(t, WithDrawPlyLimit(0))
	if err := shuffle(t, e, 7); err != nil {
		t.Fatal(err)
	}
	if e.Status() != StatusInProgress {
		t.Fatalf("Expected game in progress after 7 plies, got %s", e.Status())
	}
	// the eighth ply brings the opening position back a third time
	e2 := newTestEngine(t, WithDrawPlyLimit(0))
	if err := shuffle(t, e2, 8); err != nil {
		t.Fatal(err)
	}
	if e2.Status() != StatusDraw {
		t.Fatalf("Expected repetition draw, got %s", e2.Status())
	}
	if got := e2.Result().Reason; got != "position repeated three times" {
		t.Errorf("unexpected reason %q", got)
	}
}

func TestEndingWithoutMove(t *testing.T) {
	tests := []struct {
		name   string
		end    func(e *Engine) (*GameResult, error)
		status Status
		winner string
	}{
		{"red resigns", func(e *Engine) (*GameResult, error) { return e.Resign(Red) }, StatusResigned, "bob"},
		{"black resigns", func(e *Engine) (*GameResult, error) { return e.Resign(Black) }, StatusResigned, "alice"},
		{"black abandons", func(e *Engine) (*GameResult, error) { return e.Abandon(Black, "") }, StatusAbandoned, "alice"},
		{"red times out", func(e *Engine) (*GameResult, error) { return e.Timeout(Red) }, StatusTimeout, "bob"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEngine(t)
			var ended int
			e.Subscribe(ListenerFunc(func(ev Event) {
				if ev.Type == EventGameEnded {
					ended++
				}
			}))

			result, err := test.end(e)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Status != test.status || result.Winner != test.winner {
				t.Errorf("Expected %s won by %s, got %+v", test.status, test.winner, result)
			}
			if e.Status() != test.status {
				t.Errorf("Expected engine status %s, got %s", test.status, e.Status())
			}
			if ended != 1 {
				t.Errorf("Expected one game_ended event, got %d", ended)
			}
			if _, err := test.end(e); !errors.Is(err, ErrGameOver) {
				t.Errorf("Expected ErrGameOver on a finished game, got %v", err)
			}
			if err := e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), red(Soldier))); !errors.Is(err, ErrGameOver) {
				t.Errorf("Expected ErrGameOver for a move, got %v", err)
			}
		})
	}
}

func TestListeners_OrderAndUnsubscribe(t *testing.T) {
	e := newTestEngine(t)
	var got []string
	record := func(name string) Listener {
		return ListenerFunc(func(ev Event) { got = append(got, name+":"+string(ev.Type)) })
	}
	e.Subscribe(record("first"))
	stop := e.Subscribe(record("second"))

	if err := e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), red(Soldier))); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"first:move_executed", "second:move_executed",
		"first:state_changed", "second:state_changed",
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	stop()
	got = nil
	_ = e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), black(Soldier)))
	if fmt.Sprint(got) != fmt.Sprint([]string{"first:invalid_move"}) {
		t.Errorf("Expected only the first listener after unsubscribe, got %v", got)
	}
}

func TestInvalidMoveEvent(t *testing.T) {
	e := newTestEngine(t)
	var last Event
	e.Subscribe(ListenerFunc(func(ev Event) { last = ev }))

	_ = e.ExecuteMove(NewMove(pos(3, 0), pos(4, 0), black(Soldier)))
	if last.Type != EventInvalidMove {
		t.Fatalf("Expected invalid_move, got %s", last.Type)
	}
	if last.Reason != "not your turn" || last.Recovered {
		t.Errorf("unexpected event %+v", last)
	}
}

func TestExecuteMove_RollbackOnInternalFailure(t *testing.T) {
	hooks := map[string]func(*GameState) error{
		"error": func(*GameState) error { return errors.New("disk on fire") },
		"panic": func(*GameState) error { panic("boom") },
	}

	for name, hook := range hooks {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t)
			before := e.State()
			var events []Event
			e.Subscribe(ListenerFunc(func(ev Event) { events = append(events, ev) }))

			e.faultHook = hook
			err := e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), red(Soldier)))
			if !errors.Is(err, ErrMoveRolledBack) {
				t.Fatalf("Expected ErrMoveRolledBack, got %v", err)
			}

			after := e.State()
			if after.Board != before.Board || after.Turn != Red || len(after.History) != 0 {
				t.Error("Expected state restored to the pre-move snapshot")
			}
			if len(events) != 1 || events[0].Type != EventInvalidMove || !events[0].Recovered {
				t.Errorf("Expected one recovered invalid_move event, got %+v", events)
			}

			e.faultHook = nil
			if err := e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), red(Soldier))); err != nil {
				t.Errorf("Expected game to continue after rollback, got %v", err)
			}
		})
	}
}

func TestExecuteMove_CorruptionWithoutSnapshot(t *testing.T) {
	e := newTestEngine(t)
	var types []EventType
	e.Subscribe(ListenerFunc(func(ev Event) { types = append(types, ev.Type) }))

	e.faultHook = func(*GameState) error {
		e.snapshot = nil
		return errors.New("lost snapshot")
	}
	if err := e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), red(Soldier))); !errors.Is(err, ErrStateCorrupted) {
		t.Fatalf("Expected ErrStateCorrupted, got %v", err)
	}
	if len(types) != 1 || types[0] != EventStateCorrupted {
		t.Errorf("Expected a state_corrupted event, got %v", types)
	}

	e.faultHook = nil
	if err := e.ExecuteMove(NewMove(pos(3, 0), pos(4, 0), black(Soldier))); !errors.Is(err, ErrStateCorrupted) {
		t.Errorf("Expected the engine to stay corrupted, got %v", err)
	}
}

func TestState_IsDetachedSnapshot(t *testing.T) {
	e := newTestEngine(t)
	if err := e.ExecuteMove(NewMove(pos(6, 0), pos(5, 0), red(Soldier))); err != nil {
		t.Fatal(err)
	}

	snap := e.State()
	snap.Board.Set(pos(5, 0), Piece{})
	snap.History[0].To = pos(0, 0)
	snap.Turn = Red

	live := e.State()
	if live.Board.At(pos(5, 0)) != red(Soldier) || live.History[0].To != pos(5, 0) || live.Turn != Black {
		t.Error("mutating a snapshot must not affect the engine")
	}
}

func TestMoveEqual_IgnoresTimestamp(t *testing.T) {
	a := Move{From: pos(6, 0), To: pos(5, 0), Piece: red(Soldier), Timestamp: time.Unix(1, 0)}
	b := a
	b.Timestamp = time.Unix(2, 0)
	if !a.Equal(b) {
		t.Error("Expected moves differing only in timestamp to be equal")
	}
	captured := black(Soldier)
	b.Captured = &captured
	if a.Equal(b) {
		t.Error("Expected captured piece to matter")
	}
}
