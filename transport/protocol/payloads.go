package protocol

import (
	"errors"
	"strings"

	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
)

// Payload is the body of one message kind
type Payload interface {
	Kind() Kind
	Validate() error
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(name + " is required")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (LoginRequest) Kind() Kind { return KindLoginRequest }

// Validate leaves empty credentials to the lobby, which answers them with
// INVALID_CREDENTIALS.
func (LoginRequest) Validate() error { return nil }

type LoginResponse struct {
	Success bool            `json:"success"`
	Player  *service.Player `json:"player"`
	Error   *string         `json:"error"`
}

func (LoginResponse) Kind() Kind { return KindLoginResponse }
func (LoginResponse) Validate() error { return nil }

type LogoutRequest struct{}

func (LogoutRequest) Kind() Kind { return KindLogoutRequest }
func (LogoutRequest) Validate() error { return nil }

type LobbyUpdate struct {
	Players  []service.Player      `json:"players"`
	Sessions []service.SessionInfo `json:"sessions"`
}

func (LobbyUpdate) Kind() Kind { return KindLobbyUpdate }
func (LobbyUpdate) Validate() error { return nil }

type PlayerListRequest struct{}

func (PlayerListRequest) Kind() Kind { return KindPlayerListRequest }
func (PlayerListRequest) Validate() error { return nil }

type PlayerListResponse struct {
	Players []service.Player `json:"players"`
}

func (PlayerListResponse) Kind() Kind { return KindPlayerListResponse }
func (PlayerListResponse) Validate() error { return nil }

type GameListRequest struct{}

func (GameListRequest) Kind() Kind { return KindGameListRequest }
func (GameListRequest) Validate() error { return nil }

type GameListResponse struct {
	Sessions []service.SessionInfo `json:"sessions"`
}

func (GameListResponse) Kind() Kind { return KindGameListResponse }
func (GameListResponse) Validate() error { return nil }

// GameInvitation is sent by the inviter with TargetPlayerID set, and
// delivered to the target with InvitationID and FromPlayerID filled in.
type GameInvitation struct {
	TargetPlayerID string `json:"targetPlayerId"`
	InvitationID   string `json:"invitationId,omitempty"`
	FromPlayerID   string `json:"fromPlayerId,omitempty"`
	FromName       string `json:"fromName,omitempty"`
}

func (GameInvitation) Kind() Kind { return KindGameInvitation }
func (g GameInvitation) Validate() error {
	return required("targetPlayerId", g.TargetPlayerID)
}

type InvitationResponse struct {
	InvitationID string `json:"invitationId"`
	Accepted     bool   `json:"accepted"`
}

func (InvitationResponse) Kind() Kind { return KindInvitationResponse }
func (r InvitationResponse) Validate() error {
	return required("invitationId", r.InvitationID)
}

type MoveRequest struct {
	GameID string      `json:"gameId"`
	Move   engine.Move `json:"move"`
}

func (MoveRequest) Kind() Kind { return KindMoveRequest }
func (r MoveRequest) Validate() error {
	return required("gameId", r.GameID)
}

type MoveResponse struct {
	GameID  string       `json:"gameId"`
	Move    *engine.Move `json:"move"`
	Success bool         `json:"success"`
	Error   *string      `json:"error"`
	Code    service.Code `json:"code,omitempty"`
}

func (MoveResponse) Kind() Kind { return KindMoveResponse }
func (MoveResponse) Validate() error { return nil }

type GameStateUpdate struct {
	GameID string            `json:"gameId"`
	State  *engine.GameState `json:"state"`
}

func (GameStateUpdate) Kind() Kind { return KindGameStateUpdate }
func (GameStateUpdate) Validate() error { return nil }

type GameStart struct {
	GameID  string              `json:"gameId"`
	Session service.SessionInfo `json:"session"`
}

func (GameStart) Kind() Kind { return KindGameStart }
func (GameStart) Validate() error { return nil }

type GameEnd struct {
	GameID string            `json:"gameId"`
	Result engine.GameResult `json:"result"`
}

func (GameEnd) Kind() Kind { return KindGameEnd }
func (GameEnd) Validate() error { return nil }

// ChatMessage with a nil TargetID is a lobby broadcast
type ChatMessage struct {
	Content  string  `json:"content"`
	TargetID *string `json:"targetId"`
}

func (ChatMessage) Kind() Kind { return KindChatMessage }
func (c ChatMessage) Validate() error {
	return required("content", c.Content)
}

// Target returns the recipient id, or "" for a broadcast
func (c ChatMessage) Target() string {
	if c.TargetID == nil {
		return ""
	}
	return *c.TargetID
}

type ErrorMessage struct {
	Code        service.Code `json:"code"`
	Description string       `json:"description"`
}

func (ErrorMessage) Kind() Kind { return KindErrorMessage }
func (ErrorMessage) Validate() error { return nil }

type Heartbeat struct{}

func (Heartbeat) Kind() Kind { return KindHeartbeat }
func (Heartbeat) Validate() error { return nil }

type Disconnect struct {
	Reason string `json:"reason"`
}

func (Disconnect) Kind() Kind { return KindDisconnect }
func (Disconnect) Validate() error { return nil }

type ResignRequest struct {
	GameID string `json:"gameId"`
}

func (ResignRequest) Kind() Kind { return KindResignRequest }
func (r ResignRequest) Validate() error {
	return required("gameId", r.GameID)
}
