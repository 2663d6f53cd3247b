package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/xiangqi/game/service"
	"github.com/wricardo/xiangqi/logging"
	"github.com/wricardo/xiangqi/transport/protocol"
	"go.uber.org/zap"
)

// requestTimeout bounds the service work done for one inbound message
const requestTimeout = 10 * time.Second

// dispatch handles one inbound frame. It returns false when the connection
// should stop reading.
func (h *Hub) dispatch(c *Conn, data []byte) bool {
	msg, err := protocol.Decode(data)
	if err != nil {
		code := service.CodeMalformedMessage
		if errors.Is(err, protocol.ErrMissingSender) && c.PlayerID() == "" {
			code = service.CodeNotLoggedIn
		}
		c.fail(code, err.Error())
		return true
	}

	playerID := c.PlayerID()
	switch {
	case msg.Kind == protocol.KindLoginRequest:
	case msg.Kind == protocol.KindHeartbeat || msg.Kind == protocol.KindDisconnect:
		// Liveness and goodbyes are accepted before login
		if playerID != "" && msg.Sender() != playerID {
			c.fail(service.CodeSenderMismatch, "sender_id does not match the logged-in player")
			return true
		}
	case playerID == "":
		c.fail(service.CodeNotLoggedIn, "log in first")
		return true
	case msg.Sender() != playerID:
		c.fail(service.CodeSenderMismatch, "sender_id does not match the logged-in player")
		return true
	}

	payload, err := msg.Unpack()
	if err != nil {
		c.fail(service.CodeMalformedMessage, err.Error())
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch p := payload.(type) {
	case *protocol.LoginRequest:
		h.handleLogin(ctx, c, p)

	case *protocol.LogoutRequest:
		if err := h.svc.Logout(ctx, playerID); err != nil {
			h.failWith(c, err)
			return true
		}
		h.unbind(c)

	case *protocol.PlayerListRequest:
		c.reply(protocol.PlayerListResponse{Players: h.svc.Players(ctx)})

	case *protocol.GameListRequest:
		c.reply(protocol.GameListResponse{Sessions: h.svc.Sessions(ctx)})

	case *protocol.GameInvitation:
		if _, err := h.svc.Invite(ctx, playerID, p.TargetPlayerID); err != nil {
			h.failWith(c, err)
		}

	case *protocol.InvitationResponse:
		if _, err := h.svc.Respond(ctx, playerID, p.InvitationID, p.Accepted); err != nil {
			h.failWith(c, err)
		}

	case *protocol.MoveRequest:
		h.handleMove(ctx, c, playerID, p)

	case *protocol.ResignRequest:
		if _, err := h.svc.Resign(ctx, playerID, p.GameID); err != nil {
			h.failWith(c, err)
		}

	case *protocol.ChatMessage:
		if !c.chat.Allow() {
			c.fail(service.CodeRateLimited, "too many chat messages, slow down")
			return true
		}
		if err := h.svc.Chat(ctx, playerID, p.Target(), p.Content); err != nil {
			h.failWith(c, err)
		}

	case *protocol.Heartbeat:
		c.reply(protocol.Heartbeat{})

	case *protocol.Disconnect:
		reason := p.Reason
		if reason == "" {
			reason = "peer disconnected"
		}
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		c.close("")
		return false

	default:
		c.fail(service.CodeUnexpectedKind, string(msg.Kind)+" is sent by the server only")
	}
	return true
}

func (h *Hub) handleLogin(ctx context.Context, c *Conn, req *protocol.LoginRequest) {
	if c.PlayerID() != "" {
		c.fail(service.CodeAlreadyLoggedIn, "this connection is already logged in")
		return
	}
	p, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		desc := describe(err)
		c.reply(protocol.LoginResponse{Success: false, Error: &desc})
		h.failWith(c, err)
		return
	}
	// Bind before replying so the first frame the peer sends after the
	// response is already attributed.
	h.bind(c, p)
	logging.L().Debug("connection_bound", zap.String("conn_id", c.id), zap.String("player_id", p.ID))
	c.reply(protocol.LoginResponse{Success: true, Player: &p})
	// The login's own lobby broadcast may have run before the bind
	h.LobbyChanged()
}

func (h *Hub) handleMove(ctx context.Context, c *Conn, playerID string, req *protocol.MoveRequest) {
	res, err := h.svc.Move(ctx, playerID, req.GameID, req.Move)
	if err != nil {
		if service.CodeOf(err) == service.CodeStateCorrupted {
			// Both players were already told
			return
		}
		h.failWith(c, err)
		return
	}
	out := protocol.MoveResponse{
		GameID:  res.GameID,
		Move:    res.Move,
		Success: res.Success,
		Code:    res.Code,
	}
	if !res.Success {
		out.Error = &res.Error
	}
	c.reply(out)
}

// failWith reports a service error with its stable code
func (h *Hub) failWith(c *Conn, err error) {
	code := service.CodeOf(err)
	if code == service.CodeInternal {
		logging.L().Error("request_failed", zap.String("conn_id", c.id), zap.Error(err))
	}
	c.fail(code, describe(err))
}

func describe(err error) string {
	var se *service.Error
	if errors.As(err, &se) {
		return se.Description()
	}
	return err.Error()
}
