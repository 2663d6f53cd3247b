package service

import (
	"sync"
	"time"

	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/stats"
)

// PlayerStatus is a player's presence in the lobby
type PlayerStatus string

const (
	PlayerOnline PlayerStatus = "online"
	PlayerInGame PlayerStatus = "in_game"
)

// Player is a logged-in peer. Identity is by ID only.
type Player struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   PlayerStatus  `json:"status"`
	Rating   int           `json:"rating"`
	Stats    stats.Summary `json:"stats"`
	JoinedAt time.Time     `json:"joined_at"`
	LastSeen time.Time     `json:"last_seen"`
}

// SameAs reports whether p and o are the same player
func (p Player) SameAs(o Player) bool {
	return p.ID == o.ID
}

// Invitation is a pending challenge from one player to another
type Invitation struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// Session pairs two players with one engine. The players are fixed for the
// session's lifetime. Engine and LastActivity are guarded by the embedded
// mutex; hold it for the whole of any engine call.
type Session struct {
	sync.Mutex

	ID        string
	Red       Player
	Black     Player
	Engine    *engine.Engine
	CreatedAt time.Time

	LastActivity time.Time
	// Corrupted is set once the engine reported unrecoverable state
	Corrupted bool
}

// Players returns the ids of both participants, Red first
func (s *Session) Players() []string {
	return []string{s.Red.ID, s.Black.ID}
}

// Opponent returns the other participant's id
func (s *Session) Opponent(playerID string) string {
	if playerID == s.Red.ID {
		return s.Black.ID
	}
	return s.Red.ID
}

// Has reports whether playerID plays in this session
func (s *Session) Has(playerID string) bool {
	return playerID == s.Red.ID || playerID == s.Black.ID
}

// SideOf returns the side playerID controls
func (s *Session) SideOf(playerID string) (engine.Side, bool) {
	switch playerID {
	case s.Red.ID:
		return engine.Red, true
	case s.Black.ID:
		return engine.Black, true
	}
	return engine.Red, false
}

// Info builds a read-only view. The caller must hold the session lock.
func (s *Session) Info(withState bool) SessionInfo {
	info := SessionInfo{
		ID:           s.ID,
		RedPlayer:    s.Red.ID,
		RedName:      s.Red.Name,
		BlackPlayer:  s.Black.ID,
		BlackName:    s.Black.Name,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
	if s.Engine == nil {
		return info
	}
	state := s.Engine.State()
	info.Status = state.Status
	info.Turn = state.Turn
	info.CurrentPlayer = state.CurrentPlayer()
	info.MoveCount = len(state.History)
	info.Result = state.Result
	if withState {
		info.State = state
	}
	return info
}

// SessionInfo is the wire and API view of a session
type SessionInfo struct {
	ID            string             `json:"id"`
	RedPlayer     string             `json:"red_player"`
	RedName       string             `json:"red_name"`
	BlackPlayer   string             `json:"black_player"`
	BlackName     string             `json:"black_name"`
	Status        engine.Status      `json:"status"`
	Turn          engine.Side        `json:"turn"`
	CurrentPlayer string             `json:"current_player"`
	MoveCount     int                `json:"move_count"`
	CreatedAt     time.Time          `json:"created_at"`
	LastActivity  time.Time          `json:"last_activity"`
	Result        *engine.GameResult `json:"result,omitempty"`
	State         *engine.GameState  `json:"state,omitempty"`
}

// MoveResult is the outcome of a move request. A rejected move has
// Success false and a reason; it is not an error.
type MoveResult struct {
	GameID  string             `json:"game_id"`
	Move    *engine.Move       `json:"move,omitempty"`
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	Code    Code               `json:"code,omitempty"`
	State   *engine.GameState  `json:"state,omitempty"`
	Result  *engine.GameResult `json:"result,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryEntry is one numbered move
type HistoryEntry struct {
	Ply  int         `json:"ply"`
	Side engine.Side `json:"side"`
	engine.Move
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	GameID      string         `json:"game_id"`
	Moves       []HistoryEntry `json:"moves"`
	TotalMoves  int            `json:"total_moves"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// SweepReport summarises one maintenance pass
type SweepReport struct {
	ExpiredInvitations []Invitation `json:"expired_invitations,omitempty"`
	RemovedPlayers     []string     `json:"removed_players,omitempty"`
	RemovedSessions    []string     `json:"removed_sessions,omitempty"`
	// Ended lists sessions that reached a terminal state during the pass
	Ended []EndedSession `json:"ended,omitempty"`
}

// EndedSession pairs a session with the result that ended it
type EndedSession struct {
	Session *Session
	Result  engine.GameResult
}

// Changed reports whether the pass altered anything visible in the lobby
func (r SweepReport) Changed() bool {
	return len(r.ExpiredInvitations) > 0 || len(r.RemovedPlayers) > 0 ||
		len(r.RemovedSessions) > 0 || len(r.Ended) > 0
}

// Status is a snapshot of server-wide counters
type Status struct {
	Players     int       `json:"players"`
	Sessions    int       `json:"sessions"`
	Invitations int       `json:"invitations"`
	Connections int       `json:"connections"`
	StartedAt   time.Time `json:"started_at"`
	Uptime      string    `json:"uptime"`
}
