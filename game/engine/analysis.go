package engine

// Analysis describes a position from the point of view of the side to move
type Analysis struct {
	Turn           Side                `json:"turn"`
	FlyingGeneral  FlyingGeneralPolicy `json:"flying_general"`
	InCheck        bool                `json:"in_check"`
	Checkmate      bool                `json:"checkmate"`
	Stalemate      bool                `json:"stalemate"`
	GeneralsFacing bool                `json:"generals_facing"`
	RedPieces      int                 `json:"red_pieces"`
	BlackPieces    int                 `json:"black_pieces"`
	LegalMoves     []Move              `json:"legal_moves"`
}

// Analyze validates b and evaluates it with turn to move. Boards that fail
// ValidateLayout are rejected since check detection needs both generals.
func (r Rules) Analyze(b Board, turn Side) (*Analysis, error) {
	if err := ValidateLayout(b); err != nil {
		return nil, err
	}
	s := NewGameState(b, "", "")
	s.Turn = turn
	s.Status = StatusInProgress

	policy := r.FlyingGeneral
	if policy == "" {
		policy = FlyingGeneralPrevent
	}
	a := &Analysis{
		Turn:           turn,
		FlyingGeneral:  policy,
		InCheck:        r.IsInCheck(turn, s),
		GeneralsFacing: r.ViolatesFlyingGeneral(s),
		RedPieces:      len(b.Pieces(Red)),
		BlackPieces:    len(b.Pieces(Black)),
		LegalMoves:     r.LegalMoves(turn, s),
	}
	if a.LegalMoves == nil {
		a.LegalMoves = []Move{}
	}
	if len(a.LegalMoves) == 0 {
		a.Checkmate = a.InCheck
		a.Stalemate = !a.InCheck
	}
	return a, nil
}

// AnalyzeLayout parses rows and analyzes the result with DefaultRules
func AnalyzeLayout(rows []string, turn Side) (*Analysis, error) {
	b, err := ParseLayout(rows)
	if err != nil {
		return nil, err
	}
	return DefaultRules.Analyze(b, turn)
}
