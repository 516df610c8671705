package app

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/dkeye/watchroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Session is one entry of the live-session table. Its mutex serializes
// join, leave, control and disconnect for that session.
type Session struct {
	mu       sync.Mutex
	member   core.MemberSession
	room     domain.RoomID
	closed   bool
	lastSeen atomic.Int64
}

func (s *Session) ID() core.SessionID         { return s.member.ID() }
func (s *Session) Member() core.MemberSession { return s.member }

// RoomID and SetRoom must be called with the session lock held, i.e.
// inside Registry.Do or Registry.Unbind.
func (s *Session) RoomID() domain.RoomID    { return s.room }
func (s *Session) SetRoom(id domain.RoomID) { s.room = id }
func (s *Session) LastSeen() time.Time      { return time.Unix(0, s.lastSeen.Load()) }
func (s *Session) touch(now time.Time)      { s.lastSeen.Store(now.UnixNano()) }

type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[core.SessionID]*Session)}
}

func (r *Registry) Bind(ms core.MemberSession) error {
	s := &Session{member: ms}
	s.touch(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[ms.ID()]; ok {
		return fmt.Errorf("bind %s: session already bound", ms.ID())
	}
	r.sessions[ms.ID()] = s
	log.Info().Str("module", "app.registry").Str("sid", string(ms.ID())).Msg("bound session")
	return nil
}

func (r *Registry) Get(sid core.SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// Do runs fn with the session lock held.
func (r *Registry) Do(sid core.SessionID, fn func(*Session) error) error {
	s, ok := r.Get(sid)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionNotFound
	}
	return fn(s)
}

// Unbind removes the session and runs fn once with its lock held. Later
// calls for the same sid are no-ops.
func (r *Registry) Unbind(sid core.SessionID, fn func(*Session)) bool {
	r.mu.Lock()
	s, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	if fn != nil {
		fn(s)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return true
}

func (r *Registry) Touch(sid core.SessionID, now time.Time) {
	if s, ok := r.Get(sid); ok {
		s.touch(now)
	}
}

// Stale lists sessions not seen since cutoff.
func (r *Registry) Stale(cutoff time.Time) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.SessionID
	for sid, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			out = append(out, sid)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) IDs() []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid := range r.sessions {
		out = append(out, sid)
	}
	return out
}
