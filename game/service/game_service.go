package service

import (
	"context"
	"time"

	"github.com/wricardo/xiangqi/game/engine"
)

// LobbyService defines every player-facing operation. Transports translate
// wire messages into these calls and never touch engines directly.
type LobbyService interface {
	// Presence
	Login(ctx context.Context, username, password string) (Player, error)
	Logout(ctx context.Context, playerID string) error
	Disconnect(ctx context.Context, playerID, reason string) error
	Touch(playerID string)

	// Lobby
	Players(ctx context.Context) []Player
	Sessions(ctx context.Context) []SessionInfo
	Invite(ctx context.Context, fromID, toID string) (Invitation, error)
	Respond(ctx context.Context, playerID, invitationID string, accept bool) (*SessionInfo, error)
	Chat(ctx context.Context, fromID, toID, content string) error

	// Games
	Session(ctx context.Context, gameID string) (*SessionInfo, error)
	History(ctx context.Context, gameID string, opts HistoryOptions) (*HistoryResponse, error)
	Move(ctx context.Context, playerID, gameID string, move engine.Move) (*MoveResult, error)
	Resign(ctx context.Context, playerID, gameID string) (*engine.GameResult, error)

	// Maintenance
	Sweep(ctx context.Context, now time.Time) SweepReport
	Status(ctx context.Context) Status
	SetNotifier(n Notifier)
}

// SessionManager stores players, invitations and sessions. Every method is
// atomic with respect to the others; AcceptInvitation succeeds at most once
// per invitation id.
type SessionManager interface {
	AddPlayer(p Player) (Player, error)
	GetPlayer(id string) (Player, error)
	RemovePlayer(id string) (Player, error)
	TouchPlayer(id string, at time.Time) error
	SetPlayerStatus(id string, status PlayerStatus) error
	ListPlayers() []Player

	CreateInvitation(fromID, toID string) (Invitation, error)
	AcceptInvitation(id, acceptorID string) (*Session, Invitation, error)
	DeclineInvitation(id, playerID string) (Invitation, error)
	DropInvitations(playerID string) []Invitation

	GetSession(id string) (*Session, error)
	ListSessions() []*Session
	SessionsFor(playerID string) []*Session
	RemoveSession(id string) (*Session, error)

	Counts() (players, sessions, invitations int)
	Sweep(now time.Time) SweepReport
}

// Notifier delivers lobby and game events to connected players. Calls must
// not block on the network.
type Notifier interface {
	GameStarted(info SessionInfo)
	GameUpdated(gameID string, players []string, state *engine.GameState)
	GameEnded(gameID string, players []string, result engine.GameResult)
	Invited(inv Invitation)
	InvitationAnswered(inv Invitation, accepted bool)
	// Chat delivers content to toID, or to everyone when toID is empty
	Chat(fromID, toID, content string)
	Failure(playerID string, code Code, description string)
	LobbyChanged()
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) GameStarted(SessionInfo) {}
func (NopNotifier) GameUpdated(string, []string, *engine.GameState) {}
func (NopNotifier) GameEnded(string, []string, engine.GameResult) {}
func (NopNotifier) Invited(Invitation) {}
func (NopNotifier) InvitationAnswered(Invitation, bool) {}
func (NopNotifier) Chat(string, string, string) {}
func (NopNotifier) Failure(string, Code, string) {}
func (NopNotifier) LobbyChanged() {}
