package engine

import "sort"

func pos(r, c int) Position { return Position{Row: r, Col: c} }

func red(k Kind) Piece { return Piece{Kind: k, Side: Red} }

func black(k Kind) Piece { return Piece{Kind: k, Side: Black} }

func boardOf(placed map[Position]Piece) Board {
	var b Board
	for p, pc := range placed {
		b.Set(p, pc)
	}
	return b
}

func stateOf(b Board) *GameState {
	s := NewGameState(b, "alice", "bob")
	s.Status = StatusInProgress
	return s
}

func samePositions(a, b []Position) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(p Position) int { return p.Row*Cols + p.Col }
	as := append([]Position(nil), a...)
	bs := append([]Position(nil), b...)
	sort.Slice(as, func(i, j int) bool { return key(as[i]) < key(as[j]) })
	sort.Slice(bs, func(i, j int) bool { return key(bs[i]) < key(bs[j]) })
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
