package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/logging"
	"github.com/wricardo/xiangqi/stats"
)

// MaxChatLength bounds a single chat message in bytes
const MaxChatLength = 1000

// lobbyService implements the LobbyService interface
type lobbyService struct {
	sessions  SessionManager
	recorder  stats.Recorder
	now       func() time.Time
	startedAt time.Time

	mu       sync.RWMutex
	notifier Notifier
}

// Option configures the lobby service
type Option func(*lobbyService)

// WithRecorder stores finished games in r
func WithRecorder(r stats.Recorder) Option {
	return func(s *lobbyService) { s.recorder = r }
}

// WithNotifier sets the initial notifier
func WithNotifier(n Notifier) Option {
	return func(s *lobbyService) { s.notifier = n }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *lobbyService) { s.now = now }
}

// NewLobbyService creates a new lobby service instance
func NewLobbyService(sessions SessionManager, opts ...Option) LobbyService {
	s := &lobbyService{
		sessions: sessions,
		recorder: stats.NewMemoryRecorder(),
		notifier: NopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s
}

// SetNotifier replaces the notifier
func (s *lobbyService) SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

func (s *lobbyService) notify() Notifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifier
}

// Login admits a player under username. Any non-empty credential pair is
// accepted; the name must not already be in use.
func (s *lobbyService) Login(ctx context.Context, username, password string) (Player, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Player{}, Errorf(CodeInvalidCredentials, "username and password are required")
	}

	summary, err := s.recorder.Get(ctx, username)
	if err != nil {
		logging.L().Warn("stats_load_failed", zap.String("player", username), zap.Error(err))
		summary = stats.Summary{Rating: stats.DefaultRating}
	}

	now := s.now()
	p, err := s.sessions.AddPlayer(Player{
		ID:       uuid.NewString(),
		Name:     username,
		Status:   PlayerOnline,
		Rating:   summary.Rating,
		Stats:    summary,
		JoinedAt: now,
		LastSeen: now,
	})
	if err != nil {
		return Player{}, wrap(err)
	}

	logging.L().Info("player_logged_in", zap.String("player_id", p.ID), zap.String("name", p.Name))
	s.notify().LobbyChanged()
	return p, nil
}

// Logout removes the player as if they disconnected
func (s *lobbyService) Logout(ctx context.Context, playerID string) error {
	return s.Disconnect(ctx, playerID, "logged out")
}

// Disconnect removes a player, withdraws their invitations and abandons
// their running games in favour of the opponent.
func (s *lobbyService) Disconnect(ctx context.Context, playerID, reason string) error {
	p, err := s.sessions.RemovePlayer(playerID)
	if err != nil {
		return wrap(err)
	}
	n := s.notify()

	for _, inv := range s.sessions.DropInvitations(playerID) {
		if inv.To == playerID {
			n.InvitationAnswered(inv, false)
		}
	}
	for _, sess := range s.sessions.SessionsFor(playerID) {
		s.abandon(ctx, sess, playerID, fmt.Sprintf("%s left: %s", p.Name, reason))
	}

	logging.L().Info("player_disconnected",
		zap.String("player_id", p.ID),
		zap.String("name", p.Name),
		zap.String("reason", reason))
	n.LobbyChanged()
	return nil
}

// Touch records activity from playerID
func (s *lobbyService) Touch(playerID string) {
	_ = s.sessions.TouchPlayer(playerID, s.now())
}

// Players lists logged-in players
func (s *lobbyService) Players(ctx context.Context) []Player {
	return s.sessions.ListPlayers()
}

// Sessions lists all sessions without their full state
func (s *lobbyService) Sessions(ctx context.Context) []SessionInfo {
	list := s.sessions.ListSessions()
	out := make([]SessionInfo, 0, len(list))
	for _, sess := range list {
		sess.Lock()
		out = append(out, sess.Info(false))
		sess.Unlock()
	}
	return out
}

// Invite sends a challenge from fromID to toID
func (s *lobbyService) Invite(ctx context.Context, fromID, toID string) (Invitation, error) {
	inv, err := s.sessions.CreateInvitation(fromID, toID)
	if err != nil {
		return Invitation{}, wrap(err)
	}
	logging.L().Info("invitation_sent",
		zap.String("invitation_id", inv.ID),
		zap.String("from", fromID),
		zap.String("to", toID))
	s.notify().Invited(inv)
	return inv, nil
}

// Respond accepts or declines an invitation addressed to playerID. Accepting
// starts a session and returns it; declining returns nil.
func (s *lobbyService) Respond(ctx context.Context, playerID, invitationID string, accept bool) (*SessionInfo, error) {
	n := s.notify()
	if !accept {
		inv, err := s.sessions.DeclineInvitation(invitationID, playerID)
		if err != nil {
			return nil, wrap(err)
		}
		n.InvitationAnswered(inv, false)
		return nil, nil
	}

	sess, inv, err := s.sessions.AcceptInvitation(invitationID, playerID)
	if err != nil {
		return nil, wrap(err)
	}

	sess.Lock()
	sess.Engine.Subscribe(engineLogger(sess.ID))
	info := sess.Info(true)
	sess.Unlock()

	logging.L().Info("game_started",
		zap.String("game_id", sess.ID),
		zap.String("red", sess.Red.ID),
		zap.String("black", sess.Black.ID))
	n.InvitationAnswered(inv, true)
	n.GameStarted(info)
	n.LobbyChanged()
	return &info, nil
}

// Chat routes content to toID, or to everyone when toID is empty
func (s *lobbyService) Chat(ctx context.Context, fromID, toID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return Errorf(CodeMalformedMessage, "chat content is empty")
	}
	if len(content) > MaxChatLength {
		return Errorf(CodeMalformedMessage, "chat content exceeds %d bytes", MaxChatLength)
	}
	if toID != "" {
		if _, err := s.sessions.GetPlayer(toID); err != nil {
			return wrap(err)
		}
	}
	s.notify().Chat(fromID, toID, content)
	return nil
}

// Session returns a session including its full state
func (s *lobbyService) Session(ctx context.Context, gameID string) (*SessionInfo, error) {
	sess, err := s.sessions.GetSession(gameID)
	if err != nil {
		return nil, wrap(err)
	}
	sess.Lock()
	info := sess.Info(true)
	sess.Unlock()
	return &info, nil
}

// History returns paginated move history
func (s *lobbyService) History(ctx context.Context, gameID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.sessions.GetSession(gameID)
	if err != nil {
		return nil, wrap(err)
	}
	sess.Lock()
	history := sess.Engine.State().History
	sess.Unlock()

	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "desc" {
		opts.Order = "asc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []HistoryEntry{}
	entry := func(i int) HistoryEntry {
		return HistoryEntry{Ply: i + 1, Side: history[i].Piece.Side, Move: history[i]}
	}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, entry(i))
		}
	} else {
		for i := start; i < end; i++ {
			moves = append(moves, entry(i))
		}
	}

	return &HistoryResponse{
		GameID:      sess.ID,
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// Move plays move for playerID. Rule violations come back as an
// unsuccessful MoveResult; only lookup failures and corruption are errors.
func (s *lobbyService) Move(ctx context.Context, playerID, gameID string, move engine.Move) (*MoveResult, error) {
	sess, err := s.sessions.GetSession(gameID)
	if err != nil {
		return nil, wrap(err)
	}
	side, ok := sess.SideOf(playerID)
	if !ok {
		return nil, NewError(CodeNotAParticipant, ErrNotParticipant)
	}

	res := &MoveResult{GameID: sess.ID}

	sess.Lock()
	if sess.Corrupted {
		sess.Unlock()
		return nil, NewError(CodeStateCorrupted, engine.ErrStateCorrupted)
	}
	state := sess.Engine.State()
	switch {
	case state.Status.Playable() && state.Turn != side:
		err = engine.ErrNotYourTurn
	default:
		if move.Piece.IsZero() {
			move.Piece = state.Board.At(move.From)
		}
		err = sess.Engine.ExecuteMove(move)
	}
	if err == nil {
		after := sess.Engine.State()
		sess.LastActivity = s.now()
		res.Success = true
		res.Move = after.LastMove()
		res.State = after
		res.Result = after.Result
	} else if errors.Is(err, engine.ErrStateCorrupted) {
		sess.Corrupted = true
	}
	sess.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, engine.ErrStateCorrupted):
		s.corrupted(ctx, sess, err)
		return nil, NewError(CodeStateCorrupted, err)
	case errors.Is(err, engine.ErrMoveRolledBack):
		logging.L().Warn("move_rolled_back", zap.String("game_id", sess.ID), zap.Error(err))
		res.Error, res.Code = err.Error(), CodeInternal
		return res, nil
	default:
		res.Error, res.Code = err.Error(), CodeIllegalMove
		if errors.Is(err, engine.ErrNotYourTurn) {
			res.Code = CodeNotYourTurn
		}
		return res, nil
	}

	s.Touch(playerID)
	n := s.notify()
	n.GameUpdated(sess.ID, sess.Players(), res.State)
	if res.Result != nil {
		s.concluded(ctx, sess, *res.Result)
		n.LobbyChanged()
	}
	return res, nil
}

// Resign concedes the game for playerID
func (s *lobbyService) Resign(ctx context.Context, playerID, gameID string) (*engine.GameResult, error) {
	sess, err := s.sessions.GetSession(gameID)
	if err != nil {
		return nil, wrap(err)
	}
	side, ok := sess.SideOf(playerID)
	if !ok {
		return nil, NewError(CodeNotAParticipant, ErrNotParticipant)
	}

	sess.Lock()
	if sess.Corrupted {
		sess.Unlock()
		return nil, NewError(CodeStateCorrupted, engine.ErrStateCorrupted)
	}
	result, err := sess.Engine.Resign(side)
	if err == nil {
		sess.LastActivity = s.now()
	}
	sess.Unlock()
	if err != nil {
		return nil, NewError(CodeIllegalMove, err)
	}

	s.concluded(ctx, sess, *result)
	s.notify().LobbyChanged()
	return result, nil
}

// Sweep runs one registry maintenance pass and notifies everyone affected
func (s *lobbyService) Sweep(ctx context.Context, now time.Time) SweepReport {
	report := s.sessions.Sweep(now)
	n := s.notify()

	for _, inv := range report.ExpiredInvitations {
		n.InvitationAnswered(inv, false)
	}
	for _, ended := range report.Ended {
		s.concluded(ctx, ended.Session, ended.Result)
	}
	if report.Changed() {
		logging.L().Debug("registry_swept",
			zap.Int("expired_invitations", len(report.ExpiredInvitations)),
			zap.Int("removed_players", len(report.RemovedPlayers)),
			zap.Int("removed_sessions", len(report.RemovedSessions)),
			zap.Int("ended", len(report.Ended)))
		n.LobbyChanged()
	}
	return report
}

// Status reports registry sizes and uptime
func (s *lobbyService) Status(ctx context.Context) Status {
	players, sessions, invitations := s.sessions.Counts()
	return Status{
		Players:     players,
		Sessions:    sessions,
		Invitations: invitations,
		StartedAt:   s.startedAt,
		Uptime:      s.now().Sub(s.startedAt).Round(time.Second).String(),
	}
}

// abandon ends sess in favour of leaver's opponent if it is still running
func (s *lobbyService) abandon(ctx context.Context, sess *Session, leaverID, reason string) {
	side, ok := sess.SideOf(leaverID)
	if !ok {
		return
	}
	sess.Lock()
	var result *engine.GameResult
	if !sess.Corrupted && sess.Engine.Status().Playable() {
		result, _ = sess.Engine.Abandon(side, reason)
	}
	sess.Unlock()
	if result != nil {
		s.concluded(ctx, sess, *result)
	}
}

// concluded publishes a final result, records it and returns both players
// to the lobby
func (s *lobbyService) concluded(ctx context.Context, sess *Session, result engine.GameResult) {
	logging.L().Info("game_ended",
		zap.String("game_id", sess.ID),
		zap.String("status", string(result.Status)),
		zap.String("winner", result.Winner),
		zap.String("reason", result.Reason))

	s.notify().GameEnded(sess.ID, sess.Players(), result)

	outcome := stats.Outcome{
		Winner:  sess.Red.Name,
		Loser:   sess.Black.Name,
		Draw:    result.Status == engine.StatusDraw,
		Aborted: result.Status == engine.StatusAbandoned,
	}
	if !outcome.Draw && result.Winner == sess.Black.ID {
		outcome.Winner, outcome.Loser = sess.Black.Name, sess.Red.Name
	}
	if err := s.recorder.Record(ctx, outcome); err != nil {
		logging.L().Warn("stats_record_failed", zap.String("game_id", sess.ID), zap.Error(err))
	}

	for _, id := range sess.Players() {
		_ = s.sessions.SetPlayerStatus(id, PlayerOnline)
	}
}

// corrupted reports unrecoverable engine state to both players and drops
// the session
func (s *lobbyService) corrupted(ctx context.Context, sess *Session, cause error) {
	logging.L().Error("game_state_corrupted", zap.String("game_id", sess.ID), zap.Error(cause))

	n := s.notify()
	for _, id := range sess.Players() {
		n.Failure(id, CodeStateCorrupted, "game state corrupted; the game has been ended")
		_ = s.sessions.SetPlayerStatus(id, PlayerOnline)
	}
	n.GameEnded(sess.ID, sess.Players(), engine.GameResult{
		Status:  engine.StatusAbandoned,
		Reason:  "game state corrupted",
		EndedAt: s.now(),
	})
	_, _ = s.sessions.RemoveSession(sess.ID)
	n.LobbyChanged()
}

// engineLogger mirrors engine events into the log
func engineLogger(gameID string) engine.Listener {
	return engine.ListenerFunc(func(ev engine.Event) {
		log := logging.L().With(zap.String("game_id", gameID))
		switch ev.Type {
		case engine.EventInvalidMove:
			if ev.Recovered {
				log.Warn("move_recovered", zap.String("reason", ev.Reason))
				return
			}
			log.Debug("move_rejected", zap.String("reason", ev.Reason))
		case engine.EventMoveExecuted:
			if ev.Move != nil {
				log.Debug("move_executed", zap.String("move", ev.Move.String()))
			}
		case engine.EventGameEnded:
			log.Debug("engine_game_ended", zap.String("reason", ev.Reason))
		case engine.EventStateCorrupted:
			log.Error("engine_state_corrupted", zap.String("reason", ev.Reason))
		}
	})
}
