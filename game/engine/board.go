package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board is the 10x9 grid. Row 0 is Black's back rank, row 9 is Red's.
// Board is a value type: assigning it copies every cell.
type Board [Rows][Cols]Piece

// PlacedPiece pairs a piece with the square that holds it
type PlacedPiece struct {
	Piece    Piece    `json:"piece"`
	Position Position `json:"position"`
}

// StandardLayout is the canonical opening position
var StandardLayout = []string{
	"rheagaehr",
	".........",
	".c.....c.",
	"s.s.s.s.s",
	".........",
	".........",
	"S.S.S.S.S",
	".C.....C.",
	".........",
	"RHEAGAEHR",
}

var kindLetters = map[Kind]byte{
	General:  'g',
	Advisor:  'a',
	Elephant: 'e',
	Horse:    'h',
	Chariot:  'r',
	Cannon:   'c',
	Soldier:  's',
}

// NewStandardBoard returns the opening position
func NewStandardBoard() Board {
	b, err := ParseLayout(StandardLayout)
	if err != nil {
		panic(fmt.Sprintf("standard layout: %v", err))
	}
	return b
}

// At returns the piece at p, or the zero Piece when empty or off-board
func (b *Board) At(p Position) Piece {
	if !p.Valid() {
		return Piece{}
	}
	return b[p.Row][p.Col]
}

func (b *Board) occupied(row, col int) bool {
	return inBounds(row, col) && !b[row][col].IsZero()
}

// Set places piece at p. Setting the zero Piece clears the square.
func (b *Board) Set(p Position, piece Piece) {
	b[p.Row][p.Col] = piece
}

// Relocate moves whatever stands on from to to and returns the piece that
// was captured there (zero when the target was empty).
func (b *Board) Relocate(from, to Position) Piece {
	captured := b.At(to)
	b[to.Row][to.Col] = b[from.Row][from.Col]
	b[from.Row][from.Col] = Piece{}
	return captured
}

// Pieces lists every piece belonging to side in row-major order
func (b *Board) Pieces(side Side) []PlacedPiece {
	var out []PlacedPiece
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			p := b[r][c]
			if !p.IsZero() && p.Side == side {
				out = append(out, PlacedPiece{Piece: p, Position: Position{Row: r, Col: c}})
			}
		}
	}
	return out
}

// General finds side's general
func (b *Board) General(side Side) (Position, bool) {
	rows := [2]int{7, 9}
	if side == Black {
		rows = [2]int{0, 2}
	}
	for r := rows[0]; r <= rows[1]; r++ {
		for c := palaceMinCol; c <= palaceMaxCol; c++ {
			p := b[r][c]
			if p.Kind == General && p.Side == side {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	// A general outside its palace only happens on hand-built boards
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			p := b[r][c]
			if p.Kind == General && p.Side == side {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	return Position{}, false
}

// countBetween counts pieces strictly between two squares on the same line.
// It returns -1 when the squares are not on a common row or column.
func (b *Board) countBetween(from, to Position) int {
	if from.Row != to.Row && from.Col != to.Col {
		return -1
	}
	dr, dc := sign(to.Row-from.Row), sign(to.Col-from.Col)
	n := 0
	for r, c := from.Row+dr, from.Col+dc; r != to.Row || c != to.Col; r, c = r+dr, c+dc {
		if !b[r][c].IsZero() {
			n++
		}
	}
	return n
}

// Layout renders the board in layout notation
func (b *Board) Layout() []string {
	rows := make([]string, Rows)
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		sb.Reset()
		for c := 0; c < Cols; c++ {
			sb.WriteByte(pieceLetter(b[r][c]))
		}
		rows[r] = sb.String()
	}
	return rows
}

func (b *Board) String() string {
	return strings.Join(b.Layout(), "\n")
}

// MarshalJSON encodes the board as its layout rows
func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Layout())
}

// UnmarshalJSON decodes layout rows
func (b *Board) UnmarshalJSON(data []byte) error {
	var rows []string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	parsed, err := ParseLayout(rows)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseLayout builds a board from ten rows of nine characters.
// Uppercase letters are Red, lowercase Black, '.' is empty.
func ParseLayout(rows []string) (Board, error) {
	var b Board
	if len(rows) != Rows {
		return b, fmt.Errorf("layout must have %d rows, got %d", Rows, len(rows))
	}
	for r, row := range rows {
		if len(row) != Cols {
			return b, fmt.Errorf("layout row %d must have %d characters, got %d", r, Cols, len(row))
		}
		for c := 0; c < Cols; c++ {
			p, ok := letterPiece(row[c])
			if !ok {
				return b, fmt.Errorf("invalid character %q at row %d, col %d", row[c], r, c)
			}
			b[r][c] = p
		}
	}
	return b, nil
}

func pieceLetter(p Piece) byte {
	if p.IsZero() {
		return '.'
	}
	l := kindLetters[p.Kind]
	if p.Side == Red {
		l -= 'a' - 'A'
	}
	return l
}

func letterPiece(ch byte) (Piece, bool) {
	if ch == '.' {
		return Piece{}, true
	}
	side := Black
	lower := ch
	if ch >= 'A' && ch <= 'Z' {
		side = Red
		lower = ch + ('a' - 'A')
	}
	for k, l := range kindLetters {
		if l == lower {
			return Piece{Kind: k, Side: side}, true
		}
	}
	return Piece{}, false
}
