package engine

import (
	"errors"
	"testing"
)

func TestNewPosition_Bounds(t *testing.T) {
	for r := -2; r < Rows+2; r++ {
		for c := -2; c < Cols+2; c++ {
			p, err := NewPosition(r, c)
			inside := r >= 0 && r < Rows && c >= 0 && c < Cols
			if inside {
				if err != nil {
					t.Errorf("NewPosition(%d, %d): unexpected error %v", r, c, err)
				}
				if p.Row != r || p.Col != c {
					t.Errorf("NewPosition(%d, %d) = %v", r, c, p)
				}
				continue
			}
			if !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("NewPosition(%d, %d): expected ErrOutOfBounds, got %v", r, c, err)
			}
		}
	}
}

func TestCannon_ScreenRule(t *testing.T) {
	from := pos(5, 4)
	b := boardOf(map[Position]Piece{
		from:      red(Cannon),
		pos(5, 6): black(Soldier),
		pos(5, 8): black(Chariot),
		pos(3, 4): red(Soldier),
		pos(1, 4): black(Horse),
		pos(6, 4): red(Advisor),
		pos(7, 4): black(Soldier),
		pos(9, 4): black(Chariot),
	})

	tests := []struct {
		name     string
		to       Position
		expected bool
	}{
		{"empty adjacent square", pos(5, 5), true},
		{"enemy without screen", pos(5, 6), false},
		{"empty square behind a piece", pos(5, 7), false},
		{"enemy behind one screen", pos(5, 8), true},
		{"own piece", pos(3, 4), false},
		{"empty square in front of own piece", pos(4, 4), true},
		{"enemy over own screen", pos(1, 4), true},
		{"empty square past two pieces", pos(0, 4), false},
		{"enemy behind two screens", pos(9, 4), false},
		{"diagonal", pos(6, 5), false},
		{"slide to the edge", pos(5, 0), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := CanReach(&b, from, test.to); got != test.expected {
				t.Errorf("CanReach(%v -> %v): expected %v, got %v", from, test.to, test.expected, got)
			}
		})
	}
}

func TestCannon_ReachableIffScreenCountMatches(t *testing.T) {
	from := pos(5, 4)
	b := boardOf(map[Position]Piece{
		from:      red(Cannon),
		pos(5, 2): black(Soldier),
		pos(5, 1): black(Horse),
		pos(5, 6): red(Soldier),
		pos(5, 7): black(Chariot),
		pos(2, 4): black(Cannon),
		pos(0, 4): black(Chariot),
		pos(7, 4): black(Elephant),
	})

	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			to := pos(r, c)
			if to == from || (r != from.Row && c != from.Col) {
				continue
			}
			target := b.At(to)
			between := b.countBetween(from, to)
			var want bool
			switch {
			case target.IsZero():
				want = between == 0
			case target.Side == Black:
				want = between == 1
			}
			if got := CanReach(&b, from, to); got != want {
				t.Errorf("cannon %v -> %v (between=%d): expected %v, got %v", from, to, between, want, got)
			}
		}
	}
}

func TestHorse_LegBlocking(t *testing.T) {
	from := pos(5, 4)
	to := pos(3, 3) // (r-2, c-1)

	tests := []struct {
		name     string
		extra    map[Position]Piece
		expected bool
	}{
		{"open board", nil, true},
		{"leg occupied by own piece", map[Position]Piece{pos(4, 4): red(Soldier)}, false},
		{"leg occupied by enemy", map[Position]Piece{pos(4, 4): black(Soldier)}, false},
		{"diagonal neighbour occupied", map[Position]Piece{pos(4, 3): black(Soldier)}, true},
		{"enemy on destination", map[Position]Piece{to: black(Chariot)}, true},
		{"own piece on destination", map[Position]Piece{to: red(Chariot)}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			placed := map[Position]Piece{from: red(Horse)}
			for p, pc := range test.extra {
				placed[p] = pc
			}
			b := boardOf(placed)
			if got := CanReach(&b, from, to); got != test.expected {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestHorse_CandidatesOnOpenBoard(t *testing.T) {
	from := pos(5, 4)
	b := boardOf(map[Position]Piece{from: red(Horse)})
	want := []Position{
		pos(3, 3), pos(3, 5), pos(7, 3), pos(7, 5),
		pos(4, 2), pos(6, 2), pos(4, 6), pos(6, 6),
	}
	if got := Candidates(&b, from); !samePositions(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestElephant_EyeAndRiver(t *testing.T) {
	tests := []struct {
		name     string
		placed   map[Position]Piece
		from, to Position
		expected bool
	}{
		{"red open diagonal", map[Position]Piece{pos(7, 2): red(Elephant)}, pos(7, 2), pos(9, 4), true},
		{"red eye blocked", map[Position]Piece{pos(7, 2): red(Elephant), pos(8, 3): black(Soldier)}, pos(7, 2), pos(9, 4), false},
		{"red crossing river", map[Position]Piece{pos(5, 2): red(Elephant)}, pos(5, 2), pos(3, 4), false},
		{"black open diagonal", map[Position]Piece{pos(2, 2): black(Elephant)}, pos(2, 2), pos(4, 4), true},
		{"black eye blocked by own piece", map[Position]Piece{pos(2, 2): black(Elephant), pos(3, 3): black(Soldier)}, pos(2, 2), pos(4, 4), false},
		{"black crossing river", map[Position]Piece{pos(4, 2): black(Elephant)}, pos(4, 2), pos(6, 4), false},
		{"one step diagonal", map[Position]Piece{pos(7, 2): red(Elephant)}, pos(7, 2), pos(8, 3), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := boardOf(test.placed)
			if got := CanReach(&b, test.from, test.to); got != test.expected {
				t.Errorf("CanReach(%v -> %v): expected %v, got %v", test.from, test.to, test.expected, got)
			}
		})
	}
}

func TestSoldier_Candidates(t *testing.T) {
	tests := []struct {
		name     string
		piece    Piece
		from     Position
		expected []Position
	}{
		{"red before river", red(Soldier), pos(6, 4), []Position{pos(5, 4)}},
		{"red on river bank", red(Soldier), pos(5, 4), []Position{pos(4, 4)}},
		{"red crossed", red(Soldier), pos(4, 4), []Position{pos(3, 4), pos(4, 3), pos(4, 5)}},
		{"red on last rank", red(Soldier), pos(0, 4), []Position{pos(0, 3), pos(0, 5)}},
		{"red crossed on edge file", red(Soldier), pos(2, 0), []Position{pos(1, 0), pos(2, 1)}},
		{"black before river", black(Soldier), pos(3, 4), []Position{pos(4, 4)}},
		{"black crossed", black(Soldier), pos(5, 4), []Position{pos(6, 4), pos(5, 3), pos(5, 5)}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := boardOf(map[Position]Piece{test.from: test.piece})
			if got := Candidates(&b, test.from); !samePositions(got, test.expected) {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestSoldier_NeverBackward(t *testing.T) {
	b := boardOf(map[Position]Piece{pos(4, 4): red(Soldier), pos(5, 4): black(Soldier)})
	if CanReach(&b, pos(4, 4), pos(5, 4)) {
		t.Error("red soldier must not move backward")
	}
	if CanReach(&b, pos(5, 4), pos(4, 4)) {
		t.Error("black soldier must not move backward")
	}
}

func TestChariot_StopsAtFirstPiece(t *testing.T) {
	from := pos(9, 0)
	b := boardOf(map[Position]Piece{
		from:      red(Chariot),
		pos(6, 0): black(Soldier),
		pos(9, 3): red(Advisor),
	})

	tests := []struct {
		to       Position
		expected bool
	}{
		{pos(7, 0), true},
		{pos(6, 0), true},
		{pos(5, 0), false},
		{pos(9, 2), true},
		{pos(9, 3), false},
		{pos(9, 4), false},
		{pos(8, 1), false},
	}
	for _, test := range tests {
		if got := CanReach(&b, from, test.to); got != test.expected {
			t.Errorf("chariot %v -> %v: expected %v, got %v", from, test.to, test.expected, got)
		}
	}
}

func TestAdvisor_ConfinedToPalace(t *testing.T) {
	b := boardOf(map[Position]Piece{pos(8, 4): red(Advisor)})
	want := []Position{pos(7, 3), pos(7, 5), pos(9, 3), pos(9, 5)}
	if got := Candidates(&b, pos(8, 4)); !samePositions(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	b = boardOf(map[Position]Piece{pos(7, 3): red(Advisor)})
	want = []Position{pos(8, 4)}
	if got := Candidates(&b, pos(7, 3)); !samePositions(got, want) {
		t.Errorf("corner advisor: expected %v, got %v", want, got)
	}
}

func TestGeneral_PalaceAttackAndFlying(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(9, 4): red(General),
		pos(0, 3): black(General),
		pos(8, 0): black(Chariot),
	})

	// (9,3) would face the black general, (8,4) is covered by the chariot
	want := []Position{pos(9, 5)}
	if got := Candidates(&b, pos(9, 4)); !samePositions(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Attacks ignores the safety filter
	if !Attacks(&b, pos(9, 4), pos(8, 4)) {
		t.Error("Attacks should report the geometric step to (8,4)")
	}
}

func TestGeneral_CannotLeavePalace(t *testing.T) {
	b := boardOf(map[Position]Piece{
		pos(7, 4): red(General),
		pos(0, 3): black(General),
	})
	if CanReach(&b, pos(7, 4), pos(6, 4)) {
		t.Error("general must stay inside the palace")
	}
	if CanReach(&b, pos(7, 4), pos(8, 5)) {
		t.Error("general must not move diagonally")
	}
}

func TestCanReach_EmptySourceAndOffBoard(t *testing.T) {
	b := NewStandardBoard()
	if CanReach(&b, pos(5, 0), pos(4, 0)) {
		t.Error("empty source must not reach anything")
	}
	if CanReach(&b, pos(9, 0), Position{Row: 10, Col: 0}) {
		t.Error("off-board target must not be reachable")
	}
	if Candidates(&b, pos(5, 5)) != nil {
		t.Error("empty source must have no candidates")
	}
}
