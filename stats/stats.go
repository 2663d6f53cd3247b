// Package stats records per-player game totals.
//
// Totals are keyed by username so they survive logouts. Two recorders are
// provided: an in-process map for tests and single-node runs, and a Redis
// hash per player for anything longer lived.
package stats

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// DefaultRating is reported for every player; no rating is computed
const DefaultRating = 1500

// ErrEmptyName is returned when a result names no player
var ErrEmptyName = errors.New("player name is empty")

// Summary is a player's cumulative record
type Summary struct {
	Games   int `json:"games"`
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Draws   int `json:"draws"`
	Rating  int `json:"rating"`
	Aborted int `json:"aborted"`
}

// Outcome is one finished game from the recorder's point of view
type Outcome struct {
	Winner string
	Loser  string
	Draw   bool
	// Aborted marks games that ended by abandonment or corruption
	Aborted bool
}

// Recorder stores player totals
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
	Get(ctx context.Context, player string) (Summary, error)
}

// MemoryRecorder keeps totals in memory
type MemoryRecorder struct {
	mu      sync.RWMutex
	players map[string]*Summary
}

// NewMemoryRecorder creates an empty recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{players: make(map[string]*Summary)}
}

// Record adds one game to both players
func (m *MemoryRecorder) Record(ctx context.Context, o Outcome) error {
	if err := o.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range o.deltas() {
		s := m.players[d.player]
		if s == nil {
			s = &Summary{}
			m.players[d.player] = s
		}
		s.Games++
		s.Wins += d.wins
		s.Losses += d.losses
		s.Draws += d.draws
		s.Aborted += d.aborted
	}
	return nil
}

// Get returns the totals for player; unknown players have zero totals
func (m *MemoryRecorder) Get(ctx context.Context, player string) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Summary{Rating: DefaultRating}
	if s := m.players[normalize(player)]; s != nil {
		out = *s
		out.Rating = DefaultRating
	}
	return out, nil
}

type delta struct {
	player  string
	wins    int
	losses  int
	draws   int
	aborted int
}

func (o Outcome) validate() error {
	if normalize(o.Winner) == "" || normalize(o.Loser) == "" {
		return ErrEmptyName
	}
	return nil
}

// deltas lists the per-player increments; Winner and Loser are the two
// participants even for a draw.
func (o Outcome) deltas() []delta {
	w := delta{player: normalize(o.Winner)}
	l := delta{player: normalize(o.Loser)}
	switch {
	case o.Draw:
		w.draws, l.draws = 1, 1
	default:
		w.wins, l.losses = 1, 1
	}
	if o.Aborted {
		w.aborted, l.aborted = 1, 1
	}
	return []delta{w, l}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
