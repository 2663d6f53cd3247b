package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wricardo/xiangqi/game/service"
	"github.com/wricardo/xiangqi/logging"
	"github.com/wricardo/xiangqi/transport/protocol"
	"go.uber.org/zap"
)

// Options tunes connection handling
type Options struct {
	// MaxConnections caps concurrently open connections
	MaxConnections int
	// LivenessTimeout closes a connection that has sent nothing, not even a
	// pong, for this long
	LivenessTimeout time.Duration
	// PingInterval must be shorter than LivenessTimeout
	PingInterval        time.Duration
	WriteTimeout        time.Duration
	MaintenanceInterval time.Duration
	// SendQueueSize bounds each connection's outbound queue; a connection
	// whose queue overflows is closed
	SendQueueSize  int
	MaxMessageSize int64
	ChatRate       float64
	ChatBurst      int
}

// DefaultOptions returns production defaults
func DefaultOptions() Options {
	return Options{
		MaxConnections:      100,
		LivenessTimeout:     2 * time.Minute,
		PingInterval:        54 * time.Second,
		WriteTimeout:        10 * time.Second,
		MaintenanceInterval: 15 * time.Second,
		SendQueueSize:       256,
		MaxMessageSize:      64 * 1024,
		ChatRate:            2,
		ChatBurst:           5,
	}
}

// Hub accepts connections, routes their messages to the lobby service and
// delivers the service's notifications back to the right connections.
type Hub struct {
	svc      service.LobbyService
	opts     Options
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	conns    map[*Conn]struct{}
	byPlayer map[string]*Conn

	// Unregister requests from readers
	unregister chan *Conn

	// lobbyDirty coalesces LOBBY_UPDATE broadcasts
	lobbyDirty chan struct{}

	done     chan struct{}
	doneOnce sync.Once
}

// NewHub creates a hub serving svc and installs it as the service notifier
func NewHub(svc service.LobbyService, opts Options) *Hub {
	def := DefaultOptions()
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = def.MaxConnections
	}
	if opts.LivenessTimeout <= 0 {
		opts.LivenessTimeout = def.LivenessTimeout
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.LivenessTimeout {
		opts.PingInterval = opts.LivenessTimeout * 9 / 10
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.MaintenanceInterval <= 0 {
		opts.MaintenanceInterval = def.MaintenanceInterval
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = def.SendQueueSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	if opts.ChatRate <= 0 {
		opts.ChatRate = def.ChatRate
	}
	if opts.ChatBurst <= 0 {
		opts.ChatBurst = def.ChatBurst
	}

	h := &Hub{
		svc:  svc,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Peers are not browsers bound to one origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:      make(map[*Conn]struct{}),
		byPlayer:   make(map[string]*Conn),
		unregister: make(chan *Conn),
		lobbyDirty: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	svc.SetNotifier(h)
	return h
}

// Run processes unregistrations, lobby broadcasts and periodic maintenance
// until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.MaintenanceInterval)
	defer ticker.Stop()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.unregister:
			h.remove(ctx, c)

		case <-h.lobbyDirty:
			h.broadcastLobby(ctx)

		case now := <-ticker.C:
			h.maintain(ctx, now)
		}
	}
}

// ServeHTTP upgrades the request and starts the connection's workers
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L().Warn("websocket_upgrade_failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	c := newConn(h, ws, uuid.NewString())
	if !h.register(c) {
		logging.L().Warn("connection_rejected",
			zap.String("conn_id", c.id),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("max_connections", h.opts.MaxConnections))
		c.reject(service.CodeServerFull, "server is full, try again later")
		return
	}

	logging.L().Info("connection_opened",
		zap.String("conn_id", c.id),
		zap.String("remote_addr", r.RemoteAddr))

	go c.writePump()
	go c.readPump()
}

// ConnectionCount returns the number of open connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// register admits c unless the hub is at capacity
func (h *Hub) register(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) >= h.opts.MaxConnections {
		return false
	}
	h.conns[c] = struct{}{}
	return true
}

// leave is called by a reader when its connection ends
func (h *Hub) leave(c *Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.close("")
	}
}

// remove forgets c and logs its player out, abandoning their games
func (h *Hub) remove(ctx context.Context, c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	playerID := c.PlayerID()
	if playerID != "" && h.byPlayer[playerID] == c {
		delete(h.byPlayer, playerID)
	} else {
		playerID = ""
	}
	remaining := len(h.conns)
	h.mu.Unlock()

	c.close("")
	logging.L().Info("connection_closed",
		zap.String("conn_id", c.id),
		zap.String("player_id", playerID),
		zap.String("reason", c.closeReason()),
		zap.Int("remaining", remaining))

	if playerID != "" {
		if err := h.svc.Disconnect(ctx, playerID, c.closeReason()); err != nil {
			logging.L().Debug("disconnect_after_close", zap.String("player_id", playerID), zap.Error(err))
		}
	}
}

// bind associates a logged-in player with c
func (h *Hub) bind(c *Conn, p service.Player) {
	h.mu.Lock()
	h.byPlayer[p.ID] = c
	h.mu.Unlock()
	c.setPlayer(p)
}

// unbind forgets c's player after a logout; the connection stays open
func (h *Hub) unbind(c *Conn) {
	id := c.PlayerID()
	h.mu.Lock()
	if h.byPlayer[id] == c {
		delete(h.byPlayer, id)
	}
	h.mu.Unlock()
	c.setPlayer(service.Player{})
}

func (h *Hub) connFor(playerID string) *Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byPlayer[playerID]
}

func (h *Hub) playerConns() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.byPlayer))
	for _, c := range h.byPlayer {
		out = append(out, c)
	}
	return out
}

// sendTo encodes payload once and queues it for each listed player
func (h *Hub) sendTo(senderID string, payload protocol.Payload, playerIDs ...string) {
	frame, err := protocol.Encode(senderID, payload)
	if err != nil {
		logging.L().Error("encode_failed", zap.String("kind", string(payload.Kind())), zap.Error(err))
		return
	}
	for _, id := range playerIDs {
		if c := h.connFor(id); c != nil {
			c.enqueue(frame)
		}
	}
}

// broadcast queues payload for every logged-in connection
func (h *Hub) broadcast(senderID string, payload protocol.Payload) {
	frame, err := protocol.Encode(senderID, payload)
	if err != nil {
		logging.L().Error("encode_failed", zap.String("kind", string(payload.Kind())), zap.Error(err))
		return
	}
	for _, c := range h.playerConns() {
		c.enqueue(frame)
	}
}

func (h *Hub) broadcastLobby(ctx context.Context) {
	h.broadcast("", protocol.LobbyUpdate{
		Players:  h.svc.Players(ctx),
		Sessions: h.svc.Sessions(ctx),
	})
}

// maintain reaps silent connections and sweeps the registry
func (h *Hub) maintain(ctx context.Context, now time.Time) {
	h.mu.RLock()
	var stale []*Conn
	for c := range h.conns {
		if now.Sub(c.LastSeen()) > h.opts.LivenessTimeout {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		logging.L().Info("connection_stale", zap.String("conn_id", c.id), zap.Time("last_seen", c.LastSeen()))
		c.close("liveness timeout")
	}

	h.svc.Sweep(ctx, now)
}

// shutdown closes every connection; it runs once when Run returns
func (h *Hub) shutdown() {
	h.doneOnce.Do(func() {
		close(h.done)
		h.mu.RLock()
		conns := make([]*Conn, 0, len(h.conns))
		for c := range h.conns {
			conns = append(conns, c)
		}
		h.mu.RUnlock()
		for _, c := range conns {
			c.close("server shutting down")
		}
		logging.L().Info("hub_stopped", zap.Int("closed", len(conns)))
	})
}
