package engine

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

// inPalace reports whether p lies in side's 3x3 palace
func inPalace(side Side, p Position) bool {
	if p.Col < palaceMinCol || p.Col > palaceMaxCol {
		return false
	}
	if side == Red {
		return p.Row >= 7 && p.Row <= 9
	}
	return p.Row >= 0 && p.Row <= 2
}

// ownHalf reports whether row is on side's half of the river
func ownHalf(side Side, row int) bool {
	if side == Red {
		return row >= redRiverRow
	}
	return row <= blackRiverRow
}

// forward is the row delta of a step toward the opponent
func forward(side Side) int {
	if side == Red {
		return -1
	}
	return 1
}
