package engine

import (
	"errors"
	"fmt"
	"strings"
)

// GameState is the complete, exclusively owned state of one game.
// It is mutated only through the engine; everything else works on clones.
type GameState struct {
	Board  Board  `json:"board"`
	Turn   Side   `json:"turn"`
	Status Status `json:"status"`
	// History is append-only: one entry per applied move
	History []Move `json:"history"`

	RedPlayer   string `json:"red_player"`
	BlackPlayer string `json:"black_player"`

	PliesSinceCapture int         `json:"plies_since_capture"`
	Result            *GameResult `json:"result,omitempty"`

	repetitions map[string]int
}

// NewGameState creates a state for the given board with Red to move
func NewGameState(board Board, redPlayer, blackPlayer string) *GameState {
	s := &GameState{
		Board:       board,
		Turn:        Red,
		Status:      StatusWaitingForPlayers,
		History:     []Move{},
		RedPlayer:   redPlayer,
		BlackPlayer: blackPlayer,
		repetitions: make(map[string]int),
	}
	s.repetitions[s.positionKey()] = 1
	return s
}

// CurrentPlayer returns the id of the player whose side is to move
func (s *GameState) CurrentPlayer() string {
	return s.PlayerFor(s.Turn)
}

// PlayerFor returns the id of the player controlling side
func (s *GameState) PlayerFor(side Side) string {
	if side == Red {
		return s.RedPlayer
	}
	return s.BlackPlayer
}

// SideOf returns the side controlled by playerID
func (s *GameState) SideOf(playerID string) (Side, bool) {
	switch playerID {
	case s.RedPlayer:
		return Red, true
	case s.BlackPlayer:
		return Black, true
	}
	return Red, false
}

// Clone returns a deep copy that shares nothing with s
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s
	c.History = make([]Move, len(s.History))
	for i, m := range s.History {
		if m.Captured != nil {
			captured := *m.Captured
			m.Captured = &captured
		}
		c.History[i] = m
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	c.repetitions = make(map[string]int, len(s.repetitions))
	for k, v := range s.repetitions {
		c.repetitions[k] = v
	}
	return &c
}

// LastMove returns the most recent move, or nil when none was played
func (s *GameState) LastMove() *Move {
	if len(s.History) == 0 {
		return nil
	}
	m := s.History[len(s.History)-1]
	return &m
}

// apply relocates the piece, records the move and passes the turn
func (s *GameState) apply(m Move) Move {
	captured := s.Board.Relocate(m.From, m.To)
	if captured.IsZero() {
		m.Captured = nil
		s.PliesSinceCapture++
	} else {
		m.Captured = &captured
		s.PliesSinceCapture = 0
	}
	s.History = append(s.History, m)
	s.Turn = s.Turn.Opponent()
	if s.repetitions == nil {
		s.repetitions = make(map[string]int)
	}
	s.repetitions[s.positionKey()]++
	return m
}

// repetitionCount is how often the current position has occurred
func (s *GameState) repetitionCount() int {
	return s.repetitions[s.positionKey()]
}

func (s *GameState) positionKey() string {
	return strings.Join(s.Board.Layout(), "/") + " " + s.Turn.String()
}

// checkIntegrity verifies the structural invariants of a state
func (s *GameState) checkIntegrity() error {
	if s == nil {
		return errors.New("nil game state")
	}
	for _, side := range []Side{Red, Black} {
		n := 0
		for _, pp := range s.Board.Pieces(side) {
			if pp.Piece.Kind == General {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("%s has %d generals", side, n)
		}
	}
	if s.History == nil {
		return errors.New("missing move history")
	}
	return nil
}
