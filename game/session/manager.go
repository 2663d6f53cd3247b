package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
)

// EngineFactory builds the engine for a new session
type EngineFactory func(redID, blackID string) (*engine.Engine, error)

// Manager is the player, invitation and session registry
type Manager struct {
	mu          sync.RWMutex
	players     map[string]*service.Player
	names       map[string]string // lower-case name -> player id
	invitations map[string]service.Invitation
	sessions    map[string]*service.Session

	livenessTimeout time.Duration
	invitationTTL   time.Duration
	moveTimeout     time.Duration
	newEngine       EngineFactory
	now             func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithLivenessTimeout removes players silent for longer than d; zero disables
func WithLivenessTimeout(d time.Duration) Option {
	return func(m *Manager) { m.livenessTimeout = d }
}

// WithInvitationTTL expires pending invitations after d; zero disables
func WithInvitationTTL(d time.Duration) Option {
	return func(m *Manager) { m.invitationTTL = d }
}

// WithMoveTimeout ends a game when the side to move has been idle for d;
// zero disables
func WithMoveTimeout(d time.Duration) Option {
	return func(m *Manager) { m.moveTimeout = d }
}

// WithEngineFactory overrides how session engines are built
func WithEngineFactory(f EngineFactory) Option {
	return func(m *Manager) { m.newEngine = f }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an empty registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		players:     make(map[string]*service.Player),
		names:       make(map[string]string),
		invitations: make(map[string]service.Invitation),
		sessions:    make(map[string]*service.Session),
		newEngine: func(red, black string) (*engine.Engine, error) {
			return engine.NewEngine(red, black)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddPlayer registers p. Names are unique case-insensitively.
func (m *Manager) AddPlayer(p service.Player) (service.Player, error) {
	key := strings.ToLower(strings.TrimSpace(p.Name))
	if p.ID == "" || key == "" {
		return service.Player{}, fmt.Errorf("player id and name are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.names[key]; taken {
		return service.Player{}, service.ErrPlayerExists
	}
	if _, taken := m.players[p.ID]; taken {
		return service.Player{}, service.ErrPlayerExists
	}
	if p.Status == "" {
		p.Status = service.PlayerOnline
	}
	if p.LastSeen.IsZero() {
		p.LastSeen = m.now()
	}
	stored := p
	m.players[p.ID] = &stored
	m.names[key] = p.ID
	return p, nil
}

// GetPlayer returns a copy of the player
func (m *Manager) GetPlayer(id string) (service.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return service.Player{}, service.ErrPlayerNotFound
	}
	return *p, nil
}

// RemovePlayer unregisters a player. Sessions and invitations are left for
// the caller to settle.
func (m *Manager) RemovePlayer(id string) (service.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return service.Player{}, service.ErrPlayerNotFound
	}
	m.removePlayerLocked(p)
	return *p, nil
}

func (m *Manager) removePlayerLocked(p *service.Player) {
	delete(m.players, p.ID)
	delete(m.names, strings.ToLower(strings.TrimSpace(p.Name)))
}

// TouchPlayer records activity from a player
func (m *Manager) TouchPlayer(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return service.ErrPlayerNotFound
	}
	if at.After(p.LastSeen) {
		p.LastSeen = at
	}
	return nil
}

// SetPlayerStatus updates a player's presence
func (m *Manager) SetPlayerStatus(id string, status service.PlayerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return service.ErrPlayerNotFound
	}
	p.Status = status
	return nil
}

// ListPlayers returns all players ordered by name
func (m *Manager) ListPlayers() []service.Player {
	m.mu.RLock()
	out := make([]service.Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, *p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// CreateInvitation records a challenge from fromID to toID. Both players
// must be in the lobby and not already playing.
func (m *Manager) CreateInvitation(fromID, toID string) (service.Invitation, error) {
	if fromID == toID {
		return service.Invitation{}, service.ErrInviteSelf
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from, ok := m.players[fromID]
	if !ok {
		return service.Invitation{}, service.ErrPlayerNotFound
	}
	to, ok := m.players[toID]
	if !ok {
		return service.Invitation{}, service.ErrPlayerNotFound
	}
	if from.Status != service.PlayerOnline || to.Status != service.PlayerOnline {
		return service.Invitation{}, service.ErrPlayerUnavailable
	}

	inv := service.Invitation{
		ID:        uuid.NewString(),
		From:      fromID,
		To:        toID,
		CreatedAt: m.now(),
	}
	m.invitations[inv.ID] = inv
	return inv, nil
}

// AcceptInvitation turns an invitation into a session with the inviter as
// Red. The invitation is consumed before anything else is checked, so a
// second acceptance of the same id always fails.
func (m *Manager) AcceptInvitation(id, acceptorID string) (*service.Session, service.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[id]
	if !ok || inv.To != acceptorID {
		return nil, service.Invitation{}, service.ErrInvitationNotFound
	}
	delete(m.invitations, id)

	red, okRed := m.players[inv.From]
	black, okBlack := m.players[inv.To]
	if !okRed || !okBlack {
		return nil, inv, service.ErrPlayerNotFound
	}
	if red.Status != service.PlayerOnline || black.Status != service.PlayerOnline {
		return nil, inv, service.ErrPlayerUnavailable
	}

	eng, err := m.newEngine(red.ID, black.ID)
	if err != nil {
		return nil, inv, fmt.Errorf("failed to create engine: %w", err)
	}

	red.Status = service.PlayerInGame
	black.Status = service.PlayerInGame
	now := m.now()
	sess := &service.Session{
		ID:           m.generateSessionID(),
		Red:          *red,
		Black:        *black,
		Engine:       eng,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.sessions[strings.ToLower(sess.ID)] = sess
	return sess, inv, nil
}

// DeclineInvitation removes an invitation. Either party may withdraw it.
func (m *Manager) DeclineInvitation(id, playerID string) (service.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok || (inv.To != playerID && inv.From != playerID) {
		return service.Invitation{}, service.ErrInvitationNotFound
	}
	delete(m.invitations, id)
	return inv, nil
}

// DropInvitations removes every invitation sent by or to playerID
func (m *Manager) DropInvitations(playerID string) []service.Invitation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var dropped []service.Invitation
	for id, inv := range m.invitations {
		if inv.From == playerID || inv.To == playerID {
			delete(m.invitations, id)
			dropped = append(dropped, inv)
		}
	}
	return dropped
}

// GetSession retrieves a session by ID (case-insensitive)
func (m *Manager) GetSession(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[strings.ToLower(id)]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	return sess, nil
}

// ListSessions returns all sessions, oldest first
func (m *Manager) ListSessions() []*service.Session {
	m.mu.RLock()
	out := make([]*service.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SessionsFor returns the sessions playerID takes part in
func (m *Manager) SessionsFor(playerID string) []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*service.Session
	for _, s := range m.sessions {
		if s.Has(playerID) {
			out = append(out, s)
		}
	}
	return out
}

// RemoveSession deletes a session
func (m *Manager) RemoveSession(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(id)
	sess, ok := m.sessions[key]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	delete(m.sessions, key)
	return sess, nil
}

// Counts returns the registry sizes
func (m *Manager) Counts() (players, sessions, invitations int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players), len(m.sessions), len(m.invitations)
}

// generateSessionID returns an unused 8-character hex id. Callers hold m.mu.
func (m *Manager) generateSessionID() string {
	bytes := make([]byte, 4)
	for {
		_, _ = rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if _, exists := m.sessions[id]; !exists {
			return id
		}
	}
}
