package engine

import (
	"errors"
	"fmt"
)

// Move rejection reasons. Each is user-correctable and leaves the state
// untouched.
var (
	ErrNoPieceAtSource = errors.New("no piece at source")
	ErrPieceMismatch   = errors.New("piece does not match the board")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrIllegalGeometry = errors.New("illegal move for piece")
	ErrSelfCheck       = errors.New("move would leave general in check")
	ErrGameOver        = errors.New("game is not in progress")
)

// Rules validates moves and detects end conditions under one flying-general
// policy. The zero value uses FlyingGeneralPrevent.
type Rules struct {
	FlyingGeneral FlyingGeneralPolicy
}

// DefaultRules prevents moves that leave the generals facing
var DefaultRules = Rules{FlyingGeneral: FlyingGeneralPrevent}

func (r Rules) preventsFlyingGeneral() bool {
	return r.FlyingGeneral != FlyingGeneralPenalize
}

// IsValidMove reports whether move may be played by the side to move
func (r Rules) IsValidMove(move Move, state *GameState) bool {
	return r.Explain(move, state) == nil
}

// Explain returns nil for a valid move, otherwise the specific reason it is
// rejected. Game status is not considered.
func (r Rules) Explain(move Move, state *GameState) error {
	return r.validFor(state.Turn, move, &state.Board)
}

func (r Rules) validFor(side Side, move Move, b *Board) error {
	if !move.From.Valid() || !move.To.Valid() {
		return fmt.Errorf("%w: %s->%s", ErrOutOfBounds, move.From, move.To)
	}
	piece := b.At(move.From)
	if piece.IsZero() {
		return ErrNoPieceAtSource
	}
	if move.Piece != piece {
		return fmt.Errorf("%w: claimed %s, found %s", ErrPieceMismatch, move.Piece, piece)
	}
	if piece.Side != side {
		return ErrNotYourTurn
	}
	if !CanReach(b, move.From, move.To) {
		return fmt.Errorf("%w: %s cannot go %s->%s", ErrIllegalGeometry, piece.Kind, move.From, move.To)
	}
	trial := *b
	trial.Relocate(move.From, move.To)
	if r.exposed(side, &trial) {
		return ErrSelfCheck
	}
	return nil
}

// exposed reports whether side's general is attacked on b, counting facing
// generals as an attack when the policy prevents them.
func (r Rules) exposed(side Side, b *Board) bool {
	if kingInCheck(side, b) {
		return true
	}
	return r.preventsFlyingGeneral() && generalsFacing(b)
}

// IsInCheck reports whether any opposing piece attacks side's general.
// It ignores whose turn it is.
func (r Rules) IsInCheck(side Side, state *GameState) bool {
	return kingInCheck(side, &state.Board)
}

func kingInCheck(side Side, b *Board) bool {
	gen, ok := b.General(side)
	if !ok {
		return false
	}
	return squareAttacked(b, side.Opponent(), gen)
}

// IsCheckmate reports whether side is in check and has no legal move
func (r Rules) IsCheckmate(side Side, state *GameState) bool {
	return r.IsInCheck(side, state) && !r.hasLegalMove(side, &state.Board)
}

// IsStalemate reports whether side is not in check but has no legal move
func (r Rules) IsStalemate(side Side, state *GameState) bool {
	return !r.IsInCheck(side, state) && !r.hasLegalMove(side, &state.Board)
}

// ViolatesFlyingGeneral reports whether the generals face each other on an
// open file
func (r Rules) ViolatesFlyingGeneral(state *GameState) bool {
	return generalsFacing(&state.Board)
}

// LegalMoves lists every move side could play on the state's board
func (r Rules) LegalMoves(side Side, state *GameState) []Move {
	var out []Move
	b := &state.Board
	for _, pp := range b.Pieces(side) {
		for _, to := range Candidates(b, pp.Position) {
			m := Move{From: pp.Position, To: to, Piece: pp.Piece}
			if r.validFor(side, m, b) == nil {
				if captured := b.At(to); !captured.IsZero() {
					m.Captured = &captured
				}
				out = append(out, m)
			}
		}
	}
	return out
}

func (r Rules) hasLegalMove(side Side, b *Board) bool {
	for _, pp := range b.Pieces(side) {
		for _, to := range Candidates(b, pp.Position) {
			if r.validFor(side, Move{From: pp.Position, To: to, Piece: pp.Piece}, b) == nil {
				return true
			}
		}
	}
	return false
}

// Package-level helpers using DefaultRules

// IsValidMove reports whether move is legal for the side to move
func IsValidMove(move Move, state *GameState) bool { return DefaultRules.IsValidMove(move, state) }

// IsInCheck reports whether side's general is attacked
func IsInCheck(side Side, state *GameState) bool { return DefaultRules.IsInCheck(side, state) }

// IsCheckmate reports whether side is checkmated
func IsCheckmate(side Side, state *GameState) bool { return DefaultRules.IsCheckmate(side, state) }

// IsStalemate reports whether side is stalemated
func IsStalemate(side Side, state *GameState) bool { return DefaultRules.IsStalemate(side, state) }

// ViolatesFlyingGeneral reports whether the generals face each other
func ViolatesFlyingGeneral(state *GameState) bool { return DefaultRules.ViolatesFlyingGeneral(state) }
