package engine

import "fmt"

var maxPerKind = map[Kind]int{
	General:  1,
	Advisor:  2,
	Elephant: 2,
	Horse:    2,
	Chariot:  2,
	Cannon:   2,
	Soldier:  5,
}

// ValidateLayout checks that a position could arise in a real game: one
// general per side inside its palace, advisors and elephants on their own
// points, soldiers never behind their starting rank, and no side with more
// pieces of a kind than it starts with.
func ValidateLayout(b Board) error {
	for _, side := range []Side{Red, Black} {
		counts := make(map[Kind]int)
		for _, pp := range b.Pieces(side) {
			counts[pp.Piece.Kind]++
			if err := validatePlacement(pp); err != nil {
				return fmt.Errorf("layout validation: %w", err)
			}
		}
		if counts[General] != 1 {
			return fmt.Errorf("layout validation: %s must have exactly one general, got %d", side, counts[General])
		}
		for kind, max := range maxPerKind {
			if counts[kind] > max {
				return fmt.Errorf("layout validation: %s has %d %ss, at most %d allowed", side, counts[kind], kind, max)
			}
		}
	}
	return nil
}

func validatePlacement(pp PlacedPiece) error {
	p, pos := pp.Piece, pp.Position
	switch p.Kind {
	case General:
		if !inPalace(p.Side, pos) {
			return fmt.Errorf("%s general at %s is outside its palace", p.Side, pos)
		}
	case Advisor:
		if !inPalace(p.Side, pos) || (pos.Row+pos.Col)%2 != palaceParity(p.Side) {
			return fmt.Errorf("%s advisor at %s is not on a palace point", p.Side, pos)
		}
	case Elephant:
		if !ownHalf(p.Side, pos.Row) || !elephantPoint(p.Side, pos) {
			return fmt.Errorf("%s elephant at %s is not on an elephant point", p.Side, pos)
		}
	case Soldier:
		if err := validateSoldier(p.Side, pos); err != nil {
			return err
		}
	}
	return nil
}

// palaceParity is the (row+col) parity of the diagonal points in side's palace
func palaceParity(side Side) int {
	if side == Red {
		return 0
	}
	return 1
}

func elephantPoint(side Side, pos Position) bool {
	// Elephants start on the back rank at cols 2 and 6 and can only ever
	// reach squares two diagonal steps apart from those.
	base := 9
	if side == Black {
		base = 0
	}
	dr := abs(pos.Row - base)
	if dr%2 != 0 || pos.Col%2 != 0 {
		return false
	}
	return (dr/2+pos.Col/2)%2 == 1
}

func validateSoldier(side Side, pos Position) error {
	startRow := 6
	if side == Black {
		startRow = 3
	}
	behind := pos.Row > startRow
	if side == Black {
		behind = pos.Row < startRow
	}
	if behind {
		return fmt.Errorf("%s soldier at %s is behind its starting rank", side, pos)
	}
	if ownHalf(side, pos.Row) && pos.Col%2 != 0 {
		return fmt.Errorf("%s soldier at %s cannot stand on an odd file before crossing the river", side, pos)
	}
	return nil
}
