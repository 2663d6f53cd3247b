package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/xiangqi/game/service"
	"github.com/wricardo/xiangqi/logging"
	"github.com/wricardo/xiangqi/transport/protocol"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var (
	ErrClosed      = errors.New("connection closed")
	ErrLoginFailed = errors.New("login failed")
)

// Event is one message received from the server with its decoded payload
type Event struct {
	Message *protocol.Message
	Payload protocol.Payload
}

// Kind returns the message kind
func (e Event) Kind() protocol.Kind { return e.Message.Kind }

// Client is a peer connection to the server. Incoming messages are read
// continuously in the background so pings are answered while the caller
// is busy.
type Client struct {
	conn  *websocket.Conn
	inbox chan Event

	done    chan struct{}
	closing chan struct{}
	once    sync.Once
	err     error

	mu       sync.Mutex
	playerID string
}

// Option configures Dial
type Option func(*websocket.DialOptions)

// WithCompression negotiates per-message compression
func WithCompression() Option {
	return func(o *websocket.DialOptions) {
		o.CompressionMode = websocket.CompressionNoContextTakeover
	}
}

// Dial connects to a server websocket URL such as ws://localhost:8080/ws
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	dialOpts := &websocket.DialOptions{}
	for _, opt := range opts {
		opt(dialOpts)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, dialOpts)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(1 << 20)

	c := &Client{
		conn:    conn,
		inbox:   make(chan Event, 64),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go c.listen()
	return c, nil
}

func (c *Client) listen() {
	defer close(c.done)
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.err = err
			return
		}
		msg, err := protocol.Parse(data)
		if err != nil {
			logging.L().Warn("client_bad_frame", zap.Error(err))
			continue
		}
		payload, err := msg.Unpack()
		if err != nil {
			logging.L().Warn("client_bad_payload", zap.String("kind", string(msg.Kind)), zap.Error(err))
			continue
		}
		select {
		case c.inbox <- Event{Message: msg, Payload: payload}:
		case <-c.closing:
			return
		}
	}
}

// PlayerID returns the id assigned at login
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Send wraps payload in an envelope from the logged-in player
func (c *Client) Send(ctx context.Context, payload protocol.Payload) error {
	frame, err := protocol.Encode(c.PlayerID(), payload)
	if err != nil {
		return err
	}
	return c.SendRaw(ctx, frame)
}

// SendRaw writes one frame as is
func (c *Client) SendRaw(ctx context.Context, frame []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, frame)
}

// Receive returns the next message from the server
func (c *Client) Receive(ctx context.Context) (Event, error) {
	select {
	case ev := <-c.inbox:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-c.done:
		// Drain what arrived before the close
		select {
		case ev := <-c.inbox:
			return ev, nil
		default:
		}
		return Event{}, fmt.Errorf("%w: %v", ErrClosed, c.err)
	}
}

// Expect returns the next message of kind, discarding others
func (c *Client) Expect(ctx context.Context, kind protocol.Kind) (Event, error) {
	for {
		ev, err := c.Receive(ctx)
		if err != nil {
			return Event{}, fmt.Errorf("waiting for %s: %w", kind, err)
		}
		if ev.Kind() == kind {
			return ev, nil
		}
	}
}

// Login authenticates the connection and remembers the assigned id
func (c *Client) Login(ctx context.Context, username, password string) (service.Player, error) {
	if err := c.Send(ctx, protocol.LoginRequest{Username: username, Password: password}); err != nil {
		return service.Player{}, err
	}
	ev, err := c.Expect(ctx, protocol.KindLoginResponse)
	if err != nil {
		return service.Player{}, err
	}
	resp := ev.Payload.(*protocol.LoginResponse)
	if !resp.Success || resp.Player == nil {
		reason := "unknown error"
		if resp.Error != nil {
			reason = *resp.Error
		}
		return service.Player{}, fmt.Errorf("%w: %s", ErrLoginFailed, reason)
	}

	c.mu.Lock()
	c.playerID = resp.Player.ID
	c.mu.Unlock()
	return *resp.Player, nil
}

// Heartbeat sends one HEARTBEAT
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.Send(ctx, protocol.Heartbeat{})
}

// KeepAlive sends a heartbeat every interval until ctx is done or a send
// fails.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return ErrClosed
		case <-t.C:
			if err := c.Heartbeat(ctx); err != nil {
				return err
			}
		}
	}
}

// Done is closed once the connection has ended
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close says goodbye and closes the connection
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		if c.PlayerID() != "" {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = c.Send(ctx, protocol.Disconnect{Reason: "client closed"})
			cancel()
		}
		close(c.closing)
		err = c.conn.Close(websocket.StatusNormalClosure, "bye")
	})
	return err
}
