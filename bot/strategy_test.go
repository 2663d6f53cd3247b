package bot

import (
	"testing"

	"github.com/wricardo/xiangqi/game/engine"
)

func pos(r, c int) engine.Position { return engine.Position{Row: r, Col: c} }

func stateFor(t *testing.T, turn engine.Side, rows ...string) *engine.GameState {
	t.Helper()
	b, err := engine.ParseLayout(rows)
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	s := engine.NewGameState(b, "red-id", "black-id")
	s.Turn = turn
	s.Status = engine.StatusInProgress
	return s
}

func TestGreedy_PlaysMate(t *testing.T) {
	state := stateFor(t, engine.Red,
		"....g....",
		"R........",
		".........",
		".........",
		".........",
		"........R",
		".........",
		".........",
		".........",
		"...G.....",
	)

	for seed := uint64(0); seed < 5; seed++ {
		m, ok := NewGreedy(seed).NextMove(state, engine.DefaultRules)
		if !ok {
			t.Fatal("Expected a move")
		}
		if m.From != pos(5, 8) || m.To != pos(0, 8) {
			t.Errorf("seed %d: expected mate (5,8)->(0,8), got %s", seed, m)
		}
	}
}

func TestGreedy_PrefersValuableCapture(t *testing.T) {
	state := stateFor(t, engine.Red,
		"....g....",
		".........",
		".........",
		".........",
		"r.R.....s",
		".........",
		".........",
		".........",
		".........",
		"...G.....",
	)

	m, ok := NewGreedy(7).NextMove(state, engine.DefaultRules)
	if !ok {
		t.Fatal("Expected a move")
	}
	if m.To != pos(4, 0) || m.Captured == nil || m.Captured.Kind != engine.Chariot {
		t.Errorf("Expected chariot capture at (4,0), got %s", m)
	}
}

func TestStrategies_NoLegalMove(t *testing.T) {
	stalemate := stateFor(t, engine.Black,
		"....g....",
		"R........",
		".........",
		".........",
		".........",
		".....R...",
		".........",
		".........",
		".........",
		"...G.....",
	)

	tests := []struct {
		name     string
		strategy Strategy
	}{
		{"greedy", NewGreedy(1)},
		{"random", NewRandom(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.strategy.NextMove(stalemate, engine.DefaultRules); ok {
				t.Error("Expected no move for a stalemated side")
			}
		})
	}
}

func TestRandom_LegalAndRepeatable(t *testing.T) {
	state := engine.NewGameState(engine.NewStandardBoard(), "red-id", "black-id")
	state.Status = engine.StatusInProgress

	first, ok := NewRandom(42).NextMove(state, engine.DefaultRules)
	if !ok {
		t.Fatal("Expected a move")
	}
	if !engine.DefaultRules.IsValidMove(first, state) {
		t.Errorf("Random move %s is not legal", first)
	}
	again, _ := NewRandom(42).NextMove(state, engine.DefaultRules)
	if !first.Equal(again) {
		t.Errorf("Expected the same seed to repeat %s, got %s", first, again)
	}
}
