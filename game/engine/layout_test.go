package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLayout_Standard(t *testing.T) {
	b := NewStandardBoard()
	if got := strings.Join(b.Layout(), "/"); got != strings.Join(StandardLayout, "/") {
		t.Errorf("layout round trip mismatch:\n%s", b.String())
	}
	if n := len(b.Pieces(Red)); n != 16 {
		t.Errorf("Expected 16 red pieces, got %d", n)
	}
	if g, ok := b.General(Black); !ok || g != pos(0, 4) {
		t.Errorf("Expected black general on (0,4), got %v %v", g, ok)
	}
	if b.At(pos(7, 1)) != red(Cannon) || b.At(pos(3, 8)) != black(Soldier) {
		t.Error("unexpected opening placement")
	}
}

func TestParseLayout_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows []string
	}{
		{"too few rows", StandardLayout[:9]},
		{"short row", append(append([]string{}, StandardLayout[:9]...), "RHEAGAEH")},
		{"unknown letter", append(append([]string{}, StandardLayout[:9]...), "RHEAGAEHX")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParseLayout(test.rows); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestBoardJSON(t *testing.T) {
	state := NewGameState(NewStandardBoard(), "alice", "bob")
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"rheagaehr"`) || !strings.Contains(string(data), `"turn":"red"`) {
		t.Errorf("unexpected encoding: %s", data)
	}

	var decoded GameState
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Board != state.Board {
		t.Error("board changed across JSON")
	}
}

func TestValidateLayout(t *testing.T) {
	replaceRows := func(changes map[int]string) Board {
		rows := append([]string{}, StandardLayout...)
		for row, s := range changes {
			rows[row] = s
		}
		b, err := ParseLayout(rows)
		if err != nil {
			t.Fatalf("ParseLayout: %v", err)
		}
		return b
	}
	replaceRow := func(row int, s string) Board {
		return replaceRows(map[int]string{row: s})
	}

	tests := []struct {
		name    string
		board   Board
		wantErr string
	}{
		{"standard", NewStandardBoard(), ""},
		{"missing red general", replaceRow(9, "RHEA.AEHR"), "exactly one general"},
		{"general outside palace", replaceRows(map[int]string{8: "G........", 9: "RHEA.AEHR"}), "outside its palace"},
		{"advisor off its point", replaceRow(8, "...A....."), "advisor"},
		{"elephant across the river", replaceRow(4, "..E......"), "elephant"},
		{"soldier behind start", replaceRow(8, "S........"), "behind its starting rank"},
		{"soldier on odd file before river", replaceRow(5, ".S......."), "odd file"},
		{"too many chariots", replaceRow(5, "R........"), "chariots"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateLayout(test.board)
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Expected error containing %q, got %v", test.wantErr, err)
			}
		})
	}
}
