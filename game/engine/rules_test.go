package engine

import (
	"errors"
	"testing"
)

func TestIsInCheck_ChariotOnOpenRank(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(0, 0): red(Chariot),
		pos(0, 4): black(General),
		pos(9, 3): red(General),
	})
	state := stateOf(b)

	if !IsInCheck(Black, state) {
		t.Error("Expected black to be in check from the chariot")
	}
	if IsInCheck(Red, state) {
		t.Error("Expected red not to be in check")
	}

	state.Board.Set(pos(0, 2), black(Advisor))
	if IsInCheck(Black, state) {
		t.Error("Expected a blocking piece to lift the check")
	}
}

func TestIsInCheck_IgnoresTurn(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(0, 0): red(Chariot),
		pos(0, 4): black(General),
		pos(9, 3): red(General),
	})
	state := stateOf(b)
	state.Turn = Red
	if !IsInCheck(Black, state) {
		t.Error("check detection must not depend on whose turn it is")
	}
}

func TestCheckmate(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(0, 3): black(General),
		pos(0, 8): red(Chariot),
		pos(1, 8): red(Chariot),
		pos(9, 4): red(General),
	})
	state := stateOf(b)
	state.Turn = Black

	if !IsCheckmate(Black, state) {
		t.Error("Expected black to be checkmated")
	}
	if IsStalemate(Black, state) {
		t.Error("a checkmate is not a stalemate")
	}
	if IsCheckmate(Red, state) {
		t.Error("Expected red not to be checkmated")
	}
}

func TestStalemate(t *testing.T) {
	// (0,4) would face the red general, row 1 is covered by the chariot
	b := boardOf(map[Position]Piece{
		pos(0, 3): black(General),
		pos(1, 8): red(Chariot),
		pos(9, 4): red(General),
	})
	state := stateOf(b)
	state.Turn = Black

	if IsInCheck(Black, state) {
		t.Fatal("black must not be in check")
	}
	if !IsStalemate(Black, state) {
		t.Error("Expected black to be stalemated")
	}
	if IsCheckmate(Black, state) {
		t.Error("a stalemate is not a checkmate")
	}
	if moves := DefaultRules.LegalMoves(Black, state); len(moves) != 0 {
		t.Errorf("Expected no legal moves, got %v", moves)
	}
}

func TestLegalMoves_Opening(t *testing.T) {
	state := stateOf(NewStandardBoard())
	moves := DefaultRules.LegalMoves(Red, state)
	if len(moves) != 44 {
		t.Errorf("Expected 44 opening moves for red, got %d", len(moves))
	}

	captures := 0
	for _, m := range moves {
		if m.Captured != nil {
			captures++
			if m.Captured.Kind != Horse {
				t.Errorf("Expected only cannon-takes-horse captures, got %v", m)
			}
		}
	}
	if captures != 2 {
		t.Errorf("Expected 2 opening captures, got %d", captures)
	}
}

func TestExplain_Reasons(t *testing.T) {
	state := stateOf(NewStandardBoard())

	tests := []struct {
		name     string
		move     Move
		expected error
	}{
		{"valid soldier advance", Move{From: pos(6, 0), To: pos(5, 0), Piece: red(Soldier)}, nil},
		{"off board", Move{From: Position{Row: 10, Col: 0}, To: pos(9, 0), Piece: red(Chariot)}, ErrOutOfBounds},
		{"empty source", Move{From: pos(5, 0), To: pos(4, 0), Piece: red(Soldier)}, ErrNoPieceAtSource},
		{"claimed piece differs", Move{From: pos(6, 0), To: pos(5, 0), Piece: red(Chariot)}, ErrPieceMismatch},
		{"opponent piece", Move{From: pos(3, 0), To: pos(4, 0), Piece: black(Soldier)}, ErrNotYourTurn},
		{"soldier sideways before river", Move{From: pos(6, 0), To: pos(6, 1), Piece: red(Soldier)}, ErrIllegalGeometry},
		{"capture own piece", Move{From: pos(9, 0), To: pos(9, 1), Piece: red(Chariot)}, ErrIllegalGeometry},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := DefaultRules.Explain(test.move, state)
			if test.expected == nil {
				if err != nil {
					t.Errorf("Expected valid move, got %v", err)
				}
				if !IsValidMove(test.move, state) {
					t.Error("IsValidMove disagrees with Explain")
				}
				return
			}
			if !errors.Is(err, test.expected) {
				t.Errorf("Expected %v, got %v", test.expected, err)
			}
			if IsValidMove(test.move, state) {
				t.Error("IsValidMove accepted a rejected move")
			}
		})
	}
}

func TestExplain_PinnedPieceCannotExposeGeneral(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(9, 4): red(General),
		pos(8, 4): red(Chariot),
		pos(0, 4): black(Chariot),
		pos(0, 3): black(General),
	})
	state := stateOf(b)

	err := DefaultRules.Explain(Move{From: pos(8, 4), To: pos(8, 0), Piece: red(Chariot)}, state)
	if !errors.Is(err, ErrSelfCheck) {
		t.Errorf("Expected ErrSelfCheck, got %v", err)
	}
	if err := DefaultRules.Explain(Move{From: pos(8, 4), To: pos(5, 4), Piece: red(Chariot)}, state); err != nil {
		t.Errorf("moving along the pin should be allowed, got %v", err)
	}
	if err := DefaultRules.Explain(Move{From: pos(8, 4), To: pos(0, 4), Piece: red(Chariot)}, state); err != nil {
		t.Errorf("capturing the pinning piece should be allowed, got %v", err)
	}
}

func TestFlyingGeneral_Policies(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(9, 4): red(General),
		pos(5, 4): red(Horse),
		pos(0, 4): black(General),
	})
	state := stateOf(b)
	move := Move{From: pos(5, 4), To: pos(3, 3), Piece: red(Horse)}

	if ViolatesFlyingGeneral(state) {
		t.Fatal("the horse screens the generals")
	}

	tests := []struct {
		policy   FlyingGeneralPolicy
		expected error
	}{
		{FlyingGeneralPrevent, ErrSelfCheck},
		{FlyingGeneralPenalize, nil},
	}
	for _, test := range tests {
		t.Run(string(test.policy), func(t *testing.T) {
			err := Rules{FlyingGeneral: test.policy}.Explain(move, state)
			if test.expected == nil && err != nil {
				t.Errorf("Expected move to be allowed, got %v", err)
			}
			if test.expected != nil && !errors.Is(err, test.expected) {
				t.Errorf("Expected %v, got %v", test.expected, err)
			}
		})
	}

	state.Board.Relocate(move.From, move.To)
	if !ViolatesFlyingGeneral(state) {
		t.Error("Expected facing generals to be detected")
	}
}

func TestFlyingGeneral_GeneralNeverStepsIntoFacing(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(9, 3): red(General),
		pos(0, 4): black(General),
	})
	state := stateOf(b)
	move := Move{From: pos(9, 3), To: pos(9, 4), Piece: red(General)}

	for _, policy := range []FlyingGeneralPolicy{FlyingGeneralPrevent, FlyingGeneralPenalize} {
		if err := (Rules{FlyingGeneral: policy}).Explain(move, state); !errors.Is(err, ErrIllegalGeometry) {
			t.Errorf("%s: Expected the general's own move to be rejected, got %v", policy, err)
		}
	}
}

func TestParseFlyingGeneralPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FlyingGeneralPolicy
		wantErr bool
	}{
		{"", FlyingGeneralPrevent, false},
		{"prevent", FlyingGeneralPrevent, false},
		{"penalize", FlyingGeneralPenalize, false},
		{"ignore", "", true},
	}
	for _, test := range tests {
		got, err := ParseFlyingGeneralPolicy(test.in)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseFlyingGeneralPolicy(%q) error = %v, wantErr %v", test.in, err, test.wantErr)
		}
		if got != test.want {
			t.Errorf("ParseFlyingGeneralPolicy(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
