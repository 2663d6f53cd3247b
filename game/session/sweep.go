package session

import (
	"strings"
	"time"

	"github.com/wricardo/xiangqi/game/engine"
	"github.com/wricardo/xiangqi/game/service"
)

// Sweep runs one maintenance pass at now:
//   - invitations older than the TTL expire
//   - players silent past the liveness timeout are removed and their running
//     games are abandoned
//   - running games whose side to move exceeded the move timeout end by timeout
//   - sessions that were already terminal when the pass started are removed
//
// Sessions that end during a pass are removed by the next one, so their final
// state stays readable for one interval.
func (m *Manager) Sweep(now time.Time) service.SweepReport {
	var report service.SweepReport

	m.mu.Lock()
	if m.invitationTTL > 0 {
		for id, inv := range m.invitations {
			if now.Sub(inv.CreatedAt) > m.invitationTTL {
				delete(m.invitations, id)
				report.ExpiredInvitations = append(report.ExpiredInvitations, inv)
			}
		}
	}
	stale := make(map[string]bool)
	if m.livenessTimeout > 0 {
		for _, p := range m.players {
			if now.Sub(p.LastSeen) > m.livenessTimeout {
				stale[p.ID] = true
				report.RemovedPlayers = append(report.RemovedPlayers, p.ID)
				m.removePlayerLocked(p)
			}
		}
		for id, inv := range m.invitations {
			if stale[inv.From] || stale[inv.To] {
				delete(m.invitations, id)
			}
		}
	}
	sessions := make([]*service.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	// Engines are only touched without m.mu held; the move path takes the
	// session lock first and the registry lock second.
	var finished []string
	for _, sess := range sessions {
		sess.Lock()
		if ended := m.sweepSession(sess, now, stale); ended != nil {
			report.Ended = append(report.Ended, service.EndedSession{Session: sess, Result: *ended})
		} else if sess.Corrupted || sess.Engine.Status().Terminal() {
			finished = append(finished, sess.ID)
		}
		sess.Unlock()
	}

	if len(finished) > 0 {
		m.mu.Lock()
		for _, id := range finished {
			key := strings.ToLower(id)
			if _, ok := m.sessions[key]; ok {
				delete(m.sessions, key)
				report.RemovedSessions = append(report.RemovedSessions, id)
			}
		}
		m.mu.Unlock()
	}
	return report
}

// sweepSession ends a running game if a participant went stale or the side
// to move ran out of time. The caller holds the session lock.
func (m *Manager) sweepSession(sess *service.Session, now time.Time, stale map[string]bool) *engine.GameResult {
	if sess.Corrupted || !sess.Engine.Status().Playable() {
		return nil
	}
	for _, id := range sess.Players() {
		if !stale[id] {
			continue
		}
		side, _ := sess.SideOf(id)
		result, err := sess.Engine.Abandon(side, side.String()+" lost connection")
		if err != nil {
			return nil
		}
		return result
	}
	if m.moveTimeout > 0 && now.Sub(sess.LastActivity) > m.moveTimeout {
		result, err := sess.Engine.Timeout(sess.Engine.State().Turn)
		if err != nil {
			return nil
		}
		return result
	}
	return nil
}
