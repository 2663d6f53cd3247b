package bot

import (
	"math/rand/v2"

	"github.com/wricardo/xiangqi/game/engine"
)

// Strategy picks the next move for the side to move. ok is false when the
// side has no legal move.
type Strategy interface {
	NextMove(state *engine.GameState, rules engine.Rules) (move engine.Move, ok bool)
}

// pieceValues are rough material weights used to rank captures
var pieceValues = map[engine.Kind]int{
	engine.General:  1000,
	engine.Chariot:  9,
	engine.Cannon:   5,
	engine.Horse:    4,
	engine.Advisor:  2,
	engine.Elephant: 2,
	engine.Soldier:  1,
}

// Greedy looks one ply ahead: it plays mate when available, then the most
// valuable capture, then a checking move, and otherwise a random move.
// Ties are broken randomly.
type Greedy struct {
	rng *rand.Rand
}

// NewGreedy creates a greedy strategy. The same seed replays the same
// choices for the same positions.
func NewGreedy(seed uint64) *Greedy {
	return &Greedy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *Greedy) NextMove(state *engine.GameState, rules engine.Rules) (engine.Move, bool) {
	moves := rules.LegalMoves(state.Turn, state)
	if len(moves) == 0 {
		return engine.Move{}, false
	}

	best, bestScore, ties := moves[0], -1, 0
	for _, m := range moves {
		score := g.score(m, state, rules)
		switch {
		case score > bestScore:
			best, bestScore, ties = m, score, 1
		case score == bestScore:
			// Reservoir sampling keeps every tied move equally likely
			ties++
			if g.rng.IntN(ties) == 0 {
				best = m
			}
		}
	}
	return best, true
}

func (g *Greedy) score(m engine.Move, state *engine.GameState, rules engine.Rules) int {
	after := state.Board
	after.Relocate(m.From, m.To)
	opponent := state.Turn.Opponent()

	next := engine.NewGameState(after, state.RedPlayer, state.BlackPlayer)
	next.Turn = opponent

	score := 0
	if m.Captured != nil {
		score += 10 * pieceValues[m.Captured.Kind]
	}
	if rules.IsInCheck(opponent, next) {
		if rules.IsCheckmate(opponent, next) {
			return 100000
		}
		score += 5
	}
	if rules.IsStalemate(opponent, next) {
		// A stalemated side loses
		return 99999
	}
	return score
}

// Random plays a uniformly random legal move
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random strategy with a fixed seed
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (r *Random) NextMove(state *engine.GameState, rules engine.Rules) (engine.Move, bool) {
	moves := rules.LegalMoves(state.Turn, state)
	if len(moves) == 0 {
		return engine.Move{}, false
	}
	return moves[r.rng.IntN(len(moves))], true
}
