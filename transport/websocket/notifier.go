package websocket

import (
	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
	"github.com/wricardo/xiangqi/transport/protocol"
)

var _ service.Notifier = (*Hub)(nil)

func (h *Hub) GameStarted(info service.SessionInfo) {
	h.sendTo("", protocol.GameStart{GameID: info.ID, Session: info}, info.RedPlayer, info.BlackPlayer)
}

func (h *Hub) GameUpdated(gameID string, players []string, state *engine.GameState) {
	h.sendTo("", protocol.GameStateUpdate{GameID: gameID, State: state}, players...)
}

func (h *Hub) GameEnded(gameID string, players []string, result engine.GameResult) {
	h.sendTo("", protocol.GameEnd{GameID: gameID, Result: result}, players...)
}

func (h *Hub) Invited(inv service.Invitation) {
	var fromName string
	if c := h.connFor(inv.From); c != nil {
		fromName = c.playerName()
	}
	h.sendTo(inv.From, protocol.GameInvitation{
		TargetPlayerID: inv.To,
		InvitationID:   inv.ID,
		FromPlayerID:   inv.From,
		FromName:       fromName,
	}, inv.To)
}

// InvitationAnswered tells the inviter; an accepted invitation is followed
// by GAME_START to both players.
func (h *Hub) InvitationAnswered(inv service.Invitation, accepted bool) {
	h.sendTo(inv.To, protocol.InvitationResponse{InvitationID: inv.ID, Accepted: accepted}, inv.From)
}

// Chat delivers to toID, or to every logged-in player when toID is empty
func (h *Hub) Chat(fromID, toID, content string) {
	if toID == "" {
		h.broadcast(fromID, protocol.ChatMessage{Content: content})
		return
	}
	target := toID
	h.sendTo(fromID, protocol.ChatMessage{Content: content, TargetID: &target}, toID)
}

func (h *Hub) Failure(playerID string, code service.Code, description string) {
	h.sendTo("", protocol.ErrorMessage{Code: code, Description: description}, playerID)
}

// LobbyChanged schedules one LOBBY_UPDATE broadcast. Bursts of changes
// collapse into a single broadcast.
func (h *Hub) LobbyChanged() {
	select {
	case h.lobbyDirty <- struct{}{}:
	default:
	}
}
