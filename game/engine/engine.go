package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMoveRolledBack is returned when applying a move failed unexpectedly
	// and the state was restored from the pre-move snapshot.
	ErrMoveRolledBack = errors.New("move rolled back after internal error")
	// ErrStateCorrupted is the only unrecoverable engine failure: the move
	// failed and no usable snapshot was available.
	ErrStateCorrupted = errors.New("game state corrupted")
	// ErrInvalidPlayers is returned when the two player ids are unusable
	ErrInvalidPlayers = errors.New("two distinct player ids are required")
)

// Engine runs one game. It is not safe for concurrent use: callers must
// serialise access per game.
type Engine struct {
	state        *GameState
	snapshot     *GameState
	rules        Rules
	drawPlyLimit int
	board        Board
	now          func() time.Time
	corrupted    bool

	listeners      []listenerEntry
	nextListenerID int

	// faultHook runs after a move is applied and before end conditions are
	// evaluated; a non-nil error aborts the move.
	faultHook func(*GameState) error
}

// Option configures an Engine
type Option func(*Engine)

// WithFlyingGeneralPolicy selects how facing generals are handled
func WithFlyingGeneralPolicy(p FlyingGeneralPolicy) Option {
	return func(e *Engine) { e.rules.FlyingGeneral = p }
}

// WithDrawPlyLimit sets the no-capture draw limit; zero disables it
func WithDrawPlyLimit(n int) Option {
	return func(e *Engine) { e.drawPlyLimit = n }
}

// WithBoard starts the game from a custom position instead of the opening
func WithBoard(b Board) Option {
	return func(e *Engine) { e.board = b }
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine initialises a game between redPlayer and blackPlayer. The game
// starts in progress with Red to move.
func NewEngine(redPlayer, blackPlayer string, opts ...Option) (*Engine, error) {
	if redPlayer == "" || blackPlayer == "" || redPlayer == blackPlayer {
		return nil, ErrInvalidPlayers
	}

	e := &Engine{
		rules:        DefaultRules,
		drawPlyLimit: DefaultDrawPlyLimit,
		board:        NewStandardBoard(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	state := NewGameState(e.board, redPlayer, blackPlayer)
	if err := state.checkIntegrity(); err != nil {
		return nil, fmt.Errorf("invalid starting position: %w", err)
	}
	state.Status = StatusInProgress
	if e.rules.IsInCheck(state.Turn, state) {
		state.Status = StatusCheck
	}
	e.state = state
	return e, nil
}

// State returns a snapshot of the current game state
func (e *Engine) State() *GameState {
	return e.state.Clone()
}

// Status returns the current lifecycle status
func (e *Engine) Status() Status {
	return e.state.Status
}

// Rules returns the rule set this engine validates with
func (e *Engine) Rules() Rules {
	return e.rules
}

// Result returns the game result, or nil while the game is running
func (e *Engine) Result() *GameResult {
	if e.state.Result == nil {
		return nil
	}
	r := *e.state.Result
	return &r
}

// LegalMoves lists the moves available to the side to move
func (e *Engine) LegalMoves() []Move {
	if !e.state.Status.Playable() {
		return nil
	}
	return e.rules.LegalMoves(e.state.Turn, e.state)
}

// ExecuteMove validates and applies move. A rejected move returns one of the
// rejection errors and leaves the state unchanged. An internal failure while
// applying rolls the state back (ErrMoveRolledBack) or, if that is
// impossible, reports ErrStateCorrupted.
func (e *Engine) ExecuteMove(move Move) error {
	if e.corrupted {
		return ErrStateCorrupted
	}
	e.snapshot = e.state.Clone()

	if !e.state.Status.Playable() {
		e.reject(move, ErrGameOver)
		return ErrGameOver
	}
	if reason := e.rules.Explain(move, e.state); reason != nil {
		e.reject(move, reason)
		return reason
	}
	// Accepted moves carry the engine's time, never the caller's
	move.Timestamp = e.now()

	events, err := e.tryApply(move)
	if err != nil {
		return e.recoverFrom(move, err)
	}
	for _, ev := range events {
		e.emit(ev)
	}
	return nil
}

func (e *Engine) reject(move Move, reason error) {
	e.emit(Event{Type: EventInvalidMove, Move: &move, Reason: reason.Error(), Err: reason})
}

// tryApply mutates the live state. Any panic or integrity failure is turned
// into an error so the caller can roll back.
func (e *Engine) tryApply(move Move) (events []Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events, err = nil, fmt.Errorf("panic applying move: %v", r)
		}
	}()

	applied := e.state.apply(move)
	if e.faultHook != nil {
		if err := e.faultHook(e.state); err != nil {
			return nil, err
		}
	}
	if err := e.state.checkIntegrity(); err != nil {
		return nil, err
	}

	if result := e.evaluate(applied.Piece.Side); result != nil {
		events = append(events, Event{Type: EventGameEnded, Move: &applied, Reason: result.Reason, Result: result, State: e.state.Clone()})
	}
	snapshot := e.state.Clone()
	events = append(events,
		Event{Type: EventMoveExecuted, Move: &applied, State: snapshot},
		Event{Type: EventStateChanged, Move: &applied, State: snapshot},
	)
	return events, nil
}

// evaluate checks end conditions after mover's move, in order: checkmate,
// stalemate, flying general, no-capture limit, repetition. It updates the
// status and returns the result when the game ended.
func (e *Engine) evaluate(mover Side) *GameResult {
	opp := mover.Opponent()
	s := e.state

	switch {
	case e.rules.IsCheckmate(opp, s):
		return e.finish(StatusCheckmate, s.PlayerFor(mover), s.PlayerFor(opp), fmt.Sprintf("%s is checkmated", opp))
	case e.rules.IsStalemate(opp, s):
		return e.finish(StatusStalemate, s.PlayerFor(mover), s.PlayerFor(opp), fmt.Sprintf("%s has no legal move", opp))
	case !e.rules.preventsFlyingGeneral() && e.rules.ViolatesFlyingGeneral(s):
		return e.finish(StatusDraw, s.PlayerFor(opp), s.PlayerFor(mover), fmt.Sprintf("flying general exposed by %s", mover))
	case e.drawPlyLimit > 0 && s.PliesSinceCapture >= e.drawPlyLimit:
		return e.finish(StatusDraw, "", "", fmt.Sprintf("no capture in %d plies", e.drawPlyLimit))
	case s.repetitionCount() >= RepetitionLimit:
		return e.finish(StatusDraw, "", "", "position repeated three times")
	}

	if e.rules.IsInCheck(opp, s) {
		s.Status = StatusCheck
	} else {
		s.Status = StatusInProgress
	}
	return nil
}

func (e *Engine) finish(status Status, winner, loser, reason string) *GameResult {
	result := &GameResult{
		Winner:  winner,
		Loser:   loser,
		Status:  status,
		Reason:  reason,
		EndedAt: e.now(),
	}
	e.state.Status = status
	e.state.Result = result
	r := *result
	return &r
}

func (e *Engine) recoverFrom(move Move, cause error) error {
	if e.snapshot == nil || e.snapshot.checkIntegrity() != nil {
		e.corrupted = true
		e.emit(Event{Type: EventStateCorrupted, Move: &move, Reason: cause.Error(), Err: cause})
		return fmt.Errorf("%w: %v", ErrStateCorrupted, cause)
	}
	e.state = e.snapshot
	e.snapshot = nil
	err := fmt.Errorf("%w: %v", ErrMoveRolledBack, cause)
	e.emit(Event{Type: EventInvalidMove, Move: &move, Reason: err.Error(), Err: err, Recovered: true})
	return err
}

// Resign ends the game with side conceding
func (e *Engine) Resign(side Side) (*GameResult, error) {
	return e.end(StatusResigned, side, fmt.Sprintf("%s resigned", side))
}

// Abandon ends the game because side left or lost its connection
func (e *Engine) Abandon(side Side, reason string) (*GameResult, error) {
	if reason == "" {
		reason = fmt.Sprintf("%s abandoned the game", side)
	}
	return e.end(StatusAbandoned, side, reason)
}

// Timeout ends the game because side ran out of time
func (e *Engine) Timeout(side Side) (*GameResult, error) {
	return e.end(StatusTimeout, side, fmt.Sprintf("%s ran out of time", side))
}

// end terminates the game with loser losing
func (e *Engine) end(status Status, loser Side, reason string) (*GameResult, error) {
	if e.state.Status.Terminal() {
		return nil, ErrGameOver
	}
	s := e.state
	result := e.finish(status, s.PlayerFor(loser.Opponent()), s.PlayerFor(loser), reason)
	snapshot := s.Clone()
	e.emit(Event{Type: EventGameEnded, Reason: reason, Result: result, State: snapshot})
	e.emit(Event{Type: EventStateChanged, State: snapshot})
	return result, nil
}
