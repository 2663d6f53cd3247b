package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/xiangqi/client"
	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/logging"
	"github.com/wricardo/xiangqi/transport/protocol"
	"go.uber.org/zap"
)

// ErrOpponentNotFound is returned by Challenge when no logged-in player has
// the requested name
var ErrOpponentNotFound = errors.New("opponent not found")

// Player drives one logged-in client: it accepts invitations and answers
// every position where it is to move.
type Player struct {
	client   *client.Client
	strategy Strategy
	rules    engine.Rules
	maxGames int
	delay    time.Duration
	accept   bool

	// played holds the ply count at which a move was last sent per game
	played   map[string]int
	finished int
}

// Option configures a Player
type Option func(*Player)

// WithStrategy replaces the default greedy strategy
func WithStrategy(s Strategy) Option {
	return func(p *Player) { p.strategy = s }
}

// WithRules sets the rules used to generate moves. It should match the
// server's flying-general policy.
func WithRules(r engine.Rules) Option {
	return func(p *Player) { p.rules = r }
}

// WithMaxGames stops Run after n games have ended. Zero plays forever.
func WithMaxGames(n int) Option {
	return func(p *Player) { p.maxGames = n }
}

// WithMoveDelay waits before sending each move
func WithMoveDelay(d time.Duration) Option {
	return func(p *Player) { p.delay = d }
}

// WithDeclineInvitations turns invitations down instead of accepting them
func WithDeclineInvitations() Option {
	return func(p *Player) { p.accept = false }
}

// NewPlayer wraps a client that is already logged in
func NewPlayer(c *client.Client, opts ...Option) *Player {
	p := &Player{
		client:   c,
		strategy: NewGreedy(uint64(time.Now().UnixNano())),
		rules:    engine.DefaultRules,
		accept:   true,
		played:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Finished returns how many games have ended so far
func (p *Player) Finished() int {
	return p.finished
}

// Challenge invites the logged-in player called name to a game. The
// inviter plays Red.
func (p *Player) Challenge(ctx context.Context, name string) error {
	if err := p.client.Send(ctx, protocol.PlayerListRequest{}); err != nil {
		return err
	}
	ev, err := p.client.Expect(ctx, protocol.KindPlayerListResponse)
	if err != nil {
		return err
	}
	for _, pl := range ev.Payload.(*protocol.PlayerListResponse).Players {
		if pl.Name == name && pl.ID != p.client.PlayerID() {
			logging.L().Info("bot_challenge", zap.String("opponent", name), zap.String("opponent_id", pl.ID))
			return p.client.Send(ctx, protocol.GameInvitation{TargetPlayerID: pl.ID})
		}
	}
	return fmt.Errorf("%w: %s", ErrOpponentNotFound, name)
}

// Run handles server messages until ctx is done, the connection closes or
// the game limit is reached.
func (p *Player) Run(ctx context.Context) error {
	for {
		ev, err := p.client.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := p.handle(ctx, ev); err != nil {
			return err
		}
		if p.maxGames > 0 && p.finished >= p.maxGames {
			return nil
		}
	}
}

func (p *Player) handle(ctx context.Context, ev client.Event) error {
	switch msg := ev.Payload.(type) {
	case *protocol.GameInvitation:
		logging.L().Info("bot_invitation",
			zap.String("invitation_id", msg.InvitationID),
			zap.String("from", msg.FromName),
			zap.Bool("accept", p.accept))
		return p.client.Send(ctx, protocol.InvitationResponse{InvitationID: msg.InvitationID, Accepted: p.accept})

	case *protocol.GameStart:
		logging.L().Info("bot_game_started",
			zap.String("game_id", msg.GameID),
			zap.String("red", msg.Session.RedName),
			zap.String("black", msg.Session.BlackName))
		return p.play(ctx, msg.GameID, msg.Session.State)

	case *protocol.GameStateUpdate:
		return p.play(ctx, msg.GameID, msg.State)

	case *protocol.MoveResponse:
		if !msg.Success {
			reason := "unknown"
			if msg.Error != nil {
				reason = *msg.Error
			}
			logging.L().Warn("bot_move_rejected",
				zap.String("game_id", msg.GameID),
				zap.String("code", string(msg.Code)),
				zap.String("reason", reason))
		}

	case *protocol.GameEnd:
		delete(p.played, msg.GameID)
		p.finished++
		logging.L().Info("bot_game_ended",
			zap.String("game_id", msg.GameID),
			zap.String("status", string(msg.Result.Status)),
			zap.Bool("won", msg.Result.Winner == p.client.PlayerID()),
			zap.Bool("draw", msg.Result.IsDraw()))

	case *protocol.ErrorMessage:
		logging.L().Warn("bot_server_error",
			zap.String("code", string(msg.Code)),
			zap.String("description", msg.Description))
	}
	return nil
}

// play sends a move when state shows this player to move and no move has
// been sent for that ply yet
func (p *Player) play(ctx context.Context, gameID string, state *engine.GameState) error {
	if state == nil || !state.Status.Playable() || state.CurrentPlayer() != p.client.PlayerID() {
		return nil
	}
	ply := len(state.History)
	if last, ok := p.played[gameID]; ok && last == ply {
		return nil
	}

	move, ok := p.strategy.NextMove(state, p.rules)
	if !ok {
		return nil
	}
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.delay):
		}
	}
	p.played[gameID] = ply
	logging.L().Debug("bot_move", zap.String("game_id", gameID), zap.Int("ply", ply), zap.Stringer("move", move))
	return p.client.Send(ctx, protocol.MoveRequest{GameID: gameID, Move: move})
}
