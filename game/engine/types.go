package engine

import (
	"errors"
	"fmt"
	"time"
)

// Board dimensions and territory boundaries
const (
	Rows = 10
	Cols = 9

	// Red occupies rows 5-9, Black rows 0-4. The river lies between rows 4 and 5.
	redRiverRow   = 5
	blackRiverRow = 4

	palaceMinCol = 3
	palaceMaxCol = 5

	// DefaultDrawPlyLimit is the number of consecutive plies without a capture
	// after which the game is drawn.
	DefaultDrawPlyLimit = 120

	// RepetitionLimit is how many times the same position (with the same side
	// to move) may occur before the game is drawn.
	RepetitionLimit = 3
)

// ErrOutOfBounds is returned when a position lies outside the 10x9 grid.
var ErrOutOfBounds = errors.New("position out of bounds")

// Side identifies one of the two armies
type Side int8

const (
	Red Side = iota
	Black
)

// Opponent returns the other side
func (s Side) Opponent() Side {
	if s == Red {
		return Black
	}
	return Red
}

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "red"
}

// MarshalText implements encoding.TextMarshaler
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "red":
		*s = Red
	case "black":
		*s = Black
	default:
		return fmt.Errorf("unknown side %q", string(text))
	}
	return nil
}

// Kind is the type of a piece. The zero value means "no piece".
type Kind int8

const (
	NoKind Kind = iota
	General
	Advisor
	Elephant
	Horse
	Chariot
	Cannon
	Soldier
)

var kindNames = [...]string{
	NoKind:   "none",
	General:  "general",
	Advisor:  "advisor",
	Elephant: "elephant",
	Horse:    "horse",
	Chariot:  "chariot",
	Cannon:   "cannon",
	Soldier:  "soldier",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", string(text))
}

// Piece is a closed tagged variant {kind, side}. Its position is never
// stored: it is the index of the board cell that holds it.
type Piece struct {
	Kind Kind `json:"kind"`
	Side Side `json:"side"`
}

// IsZero reports whether p denotes an empty square
func (p Piece) IsZero() bool {
	return p.Kind == NoKind
}

func (p Piece) String() string {
	if p.IsZero() {
		return "empty"
	}
	return p.Side.String() + " " + p.Kind.String()
}

// Position is an immutable (row, col) coordinate on the board
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NewPosition returns the position at (row, col) or ErrOutOfBounds
func NewPosition(row, col int) (Position, error) {
	if !inBounds(row, col) {
		return Position{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, row, col)
	}
	return Position{Row: row, Col: col}, nil
}

// MustPosition is like NewPosition but panics on invalid coordinates.
// It is intended for constant positions in tables and tests.
func MustPosition(row, col int) Position {
	p, err := NewPosition(row, col)
	if err != nil {
		panic(err)
	}
	return p
}

// Valid reports whether the position lies on the board
func (p Position) Valid() bool {
	return inBounds(p.Row, p.Col)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

func inBounds(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

// Move is one relocation of a piece. Moves are values and are never mutated
// after construction.
type Move struct {
	From      Position  `json:"from"`
	To        Position  `json:"to"`
	Piece     Piece     `json:"piece"`
	Captured  *Piece    `json:"captured,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMove builds a move stamped with the current time
func NewMove(from, to Position, piece Piece) Move {
	return Move{From: from, To: to, Piece: piece, Timestamp: time.Now()}
}

// Equal compares from, to, piece and captured piece. The timestamp is ignored.
func (m Move) Equal(o Move) bool {
	if m.From != o.From || m.To != o.To || m.Piece != o.Piece {
		return false
	}
	if m.Captured == nil || o.Captured == nil {
		return m.Captured == nil && o.Captured == nil
	}
	return *m.Captured == *o.Captured
}

func (m Move) String() string {
	s := fmt.Sprintf("%s %s->%s", m.Piece, m.From, m.To)
	if m.Captured != nil {
		s += " x " + m.Captured.Kind.String()
	}
	return s
}

// Status is the lifecycle state of a game
type Status string

const (
	StatusWaitingForPlayers Status = "waiting_for_players"
	StatusInProgress        Status = "in_progress"
	StatusCheck             Status = "check"
	StatusCheckmate         Status = "checkmate"
	StatusStalemate         Status = "stalemate"
	StatusDraw              Status = "draw"
	StatusResigned          Status = "resigned"
	StatusTimeout           Status = "timeout"
	StatusAbandoned         Status = "abandoned"
)

// Terminal reports whether no further moves can be made in this status
func (s Status) Terminal() bool {
	switch s {
	case StatusCheckmate, StatusStalemate, StatusDraw, StatusResigned, StatusTimeout, StatusAbandoned:
		return true
	}
	return false
}

// Playable reports whether moves are accepted in this status
func (s Status) Playable() bool {
	return s == StatusInProgress || s == StatusCheck
}

// GameResult describes how a game ended. Winner and Loser are both empty
// for a draw, except the flying-general draw under FlyingGeneralPenalize,
// which has StatusDraw but credits the player who did not expose the
// generals as winner.
type GameResult struct {
	Winner  string    `json:"winner,omitempty"`
	Loser   string    `json:"loser,omitempty"`
	Status  Status    `json:"status"`
	Reason  string    `json:"reason"`
	EndedAt time.Time `json:"ended_at"`
}

// IsDraw reports whether neither player was credited with a win. It is
// false for a penalized flying-general draw even though Status is
// StatusDraw.
func (r GameResult) IsDraw() bool {
	return r.Winner == "" && r.Loser == ""
}

// FlyingGeneralPolicy decides how an exposed pair of generals is handled
type FlyingGeneralPolicy string

const (
	// FlyingGeneralPrevent makes any move that leaves the generals facing illegal.
	FlyingGeneralPrevent FlyingGeneralPolicy = "prevent"
	// FlyingGeneralPenalize lets non-General movers expose the generals and
	// ends the game right after, in favour of the other player.
	FlyingGeneralPenalize FlyingGeneralPolicy = "penalize"
)

// ParseFlyingGeneralPolicy maps a config value to a policy
func ParseFlyingGeneralPolicy(s string) (FlyingGeneralPolicy, error) {
	switch FlyingGeneralPolicy(s) {
	case "", FlyingGeneralPrevent:
		return FlyingGeneralPrevent, nil
	case FlyingGeneralPenalize:
		return FlyingGeneralPenalize, nil
	}
	return "", fmt.Errorf("unknown flying general policy %q", s)
}
