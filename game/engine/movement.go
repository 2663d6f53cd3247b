package engine

// CanReach reports whether the piece standing on from may move to to under
// its own movement rules. Same-side captures and off-board targets are never
// reachable. For a General the square must also be safe: not attacked after
// the trial move and not facing the other general.
//
// CanReach does not look at whose turn it is and does not check whether the
// move exposes the mover's general; that is the validator's job.
func CanReach(b *Board, from, to Position) bool {
	piece := b.At(from)
	if !geometryAllows(b, piece, from, to) {
		return false
	}
	if piece.Kind == General {
		return generalSafe(b, piece.Side, from, to)
	}
	return true
}

// Attacks reports whether the piece on from geometrically threatens to.
// Unlike CanReach it skips the General's safety filter, so it can be used as
// a raw attack probe without recursion.
func Attacks(b *Board, from, to Position) bool {
	return geometryAllows(b, b.At(from), from, to)
}

// Candidates enumerates every square the piece on from can reach
func Candidates(b *Board, from Position) []Position {
	if b.At(from).IsZero() {
		return nil
	}
	var out []Position
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			to := Position{Row: r, Col: c}
			if CanReach(b, from, to) {
				out = append(out, to)
			}
		}
	}
	return out
}

func geometryAllows(b *Board, piece Piece, from, to Position) bool {
	if piece.IsZero() || !from.Valid() || !to.Valid() || from == to {
		return false
	}
	if target := b.At(to); !target.IsZero() && target.Side == piece.Side {
		return false
	}

	switch piece.Kind {
	case General:
		return generalStep(piece.Side, from, to)
	case Advisor:
		return advisorStep(piece.Side, from, to)
	case Elephant:
		return elephantStep(b, piece.Side, from, to)
	case Horse:
		return horseStep(b, from, to)
	case Chariot:
		return b.countBetween(from, to) == 0
	case Cannon:
		return cannonStep(b, from, to)
	case Soldier:
		return soldierStep(piece.Side, from, to)
	}
	return false
}

// generalStep: one orthogonal step inside the palace
func generalStep(side Side, from, to Position) bool {
	if abs(to.Row-from.Row)+abs(to.Col-from.Col) != 1 {
		return false
	}
	return inPalace(side, to)
}

// generalSafe plays the general's move on a scratch board and rejects it when
// the destination is attacked or the generals end up facing each other.
func generalSafe(b *Board, side Side, from, to Position) bool {
	trial := *b
	trial.Relocate(from, to)
	if squareAttacked(&trial, side.Opponent(), to) {
		return false
	}
	return !generalsFacing(&trial)
}

// advisorStep: one diagonal step inside the palace
func advisorStep(side Side, from, to Position) bool {
	if abs(to.Row-from.Row) != 1 || abs(to.Col-from.Col) != 1 {
		return false
	}
	return inPalace(side, to)
}

// elephantStep: exactly two diagonal steps, never across the river, blocked
// by any piece on the midpoint ("elephant eye").
func elephantStep(b *Board, side Side, from, to Position) bool {
	dr, dc := to.Row-from.Row, to.Col-from.Col
	if abs(dr) != 2 || abs(dc) != 2 {
		return false
	}
	if !ownHalf(side, to.Row) {
		return false
	}
	return !b.occupied(from.Row+dr/2, from.Col+dc/2)
}

// horseStep: an L-shape blocked only by the orthogonal leg square
func horseStep(b *Board, from, to Position) bool {
	dr, dc := to.Row-from.Row, to.Col-from.Col
	switch {
	case abs(dr) == 2 && abs(dc) == 1:
		return !b.occupied(from.Row+sign(dr), from.Col)
	case abs(dr) == 1 && abs(dc) == 2:
		return !b.occupied(from.Row, from.Col+sign(dc))
	}
	return false
}

// cannonStep slides like a chariot when not capturing and needs exactly one
// screen piece between source and target when capturing.
func cannonStep(b *Board, from, to Position) bool {
	between := b.countBetween(from, to)
	if between < 0 {
		return false
	}
	if b.At(to).IsZero() {
		return between == 0
	}
	return between == 1
}

// soldierStep: forward always, sideways only after crossing the river,
// never backward.
func soldierStep(side Side, from, to Position) bool {
	dr, dc := to.Row-from.Row, to.Col-from.Col
	if dr == forward(side) && dc == 0 {
		return true
	}
	if dr == 0 && abs(dc) == 1 {
		return !ownHalf(side, from.Row)
	}
	return false
}

// squareAttacked reports whether any piece of attacker threatens sq
func squareAttacked(b *Board, attacker Side, sq Position) bool {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			p := b[r][c]
			if p.IsZero() || p.Side != attacker {
				continue
			}
			if Attacks(b, Position{Row: r, Col: c}, sq) {
				return true
			}
		}
	}
	return false
}

// generalsFacing reports whether both generals share a file with nothing
// between them
func generalsFacing(b *Board) bool {
	red, okRed := b.General(Red)
	black, okBlack := b.General(Black)
	if !okRed || !okBlack || red.Col != black.Col {
		return false
	}
	return b.countBetween(red, black) == 0
}
