package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/xiangqi/game/service"
	"github.com/wricardo/xiangqi/logging"
	"github.com/wricardo/xiangqi/transport/protocol"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Conn is one peer connection. It is read by exactly one reader goroutine
// and written by exactly one writer goroutine.
type Conn struct {
	hub  *Hub
	ws   *websocket.Conn
	id   string
	send chan []byte
	chat *rate.Limiter

	mu       sync.Mutex
	player   service.Player
	lastSeen time.Time
	closed   bool
	reason   string
}

func newConn(h *Hub, ws *websocket.Conn, id string) *Conn {
	return &Conn{
		hub:      h,
		ws:       ws,
		id:       id,
		send:     make(chan []byte, h.opts.SendQueueSize),
		chat:     rate.NewLimiter(rate.Limit(h.opts.ChatRate), h.opts.ChatBurst),
		lastSeen: time.Now(),
	}
}

// ID returns the connection id
func (c *Conn) ID() string { return c.id }

// PlayerID returns the logged-in player's id, or "" before login
func (c *Conn) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player.ID
}

func (c *Conn) playerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player.Name
}

func (c *Conn) setPlayer(p service.Player) {
	c.mu.Lock()
	c.player = p
	c.mu.Unlock()
}

// LastSeen returns when the peer last sent anything
func (c *Conn) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// touch records peer activity and pushes the read deadline out
func (c *Conn) touch() {
	now := time.Now()
	c.mu.Lock()
	c.lastSeen = now
	playerID := c.player.ID
	c.mu.Unlock()

	c.ws.SetReadDeadline(now.Add(c.hub.opts.LivenessTimeout))
	if playerID != "" {
		c.hub.svc.Touch(playerID)
	}
}

func (c *Conn) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reason == "" {
		return "connection closed"
	}
	return c.reason
}

// enqueue queues one frame for the writer. A full queue means the peer is
// not keeping up; the connection is closed rather than blocking the caller.
func (c *Conn) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		logging.L().Warn("send_queue_full", zap.String("conn_id", c.id), zap.Int("queued", len(c.send)))
		c.closeLocked("send queue overflow")
		return false
	}
}

// close ends the connection. Frames still queued are dropped; when reason
// is set the peer is sent a DISCONNECT message in their place.
func (c *Conn) close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(reason)
}

func (c *Conn) closeLocked(reason string) {
	if c.closed {
		return
	}
	c.closed = true

drain:
	for {
		select {
		case <-c.send:
		default:
			break drain
		}
	}

	if reason != "" {
		c.reason = reason
		if frame, err := protocol.Encode("", protocol.Disconnect{Reason: reason}); err == nil {
			select {
			case c.send <- frame:
			default:
			}
		}
	}
	close(c.send)
}

// reject tells a peer it was refused and closes the socket. Only used
// before the workers start.
func (c *Conn) reject(code service.Code, description string) {
	defer c.ws.Close()
	frame, err := protocol.Encode("", protocol.ErrorMessage{Code: code, Description: description})
	if err != nil {
		return
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return
	}
	c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseTryAgainLater, description))
}

// readPump reads frames from the peer and dispatches them in order
func (c *Conn) readPump() {
	defer func() {
		c.hub.leave(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.opts.LivenessTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.L().Debug("websocket_read_error", zap.String("conn_id", c.id), zap.Error(err))
			}
			c.mu.Lock()
			if c.reason == "" {
				c.reason = "connection lost"
			}
			c.mu.Unlock()
			return
		}
		c.touch()

		if kind != websocket.TextMessage {
			c.fail(service.CodeMalformedMessage, "expected a text frame")
			continue
		}
		if !c.hub.dispatch(c, data) {
			return
		}
	}
}

// writePump drains the send queue in order and pings the peer
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if !ok {
				// The queue was closed
				c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			// One message per frame
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.L().Debug("websocket_write_error", zap.String("conn_id", c.id), zap.Error(err))
				c.close("")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close("")
				return
			}
		}
	}
}

// reply sends payload to this connection only
func (c *Conn) reply(payload protocol.Payload) {
	frame, err := protocol.Encode("", payload)
	if err != nil {
		logging.L().Error("encode_failed", zap.String("kind", string(payload.Kind())), zap.Error(err))
		return
	}
	c.enqueue(frame)
}

// fail sends an ERROR_MESSAGE to this connection
func (c *Conn) fail(code service.Code, description string) {
	c.reply(protocol.ErrorMessage{Code: code, Description: description})
}
