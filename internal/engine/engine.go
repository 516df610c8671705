// Package engine is the single entry point of the room synchronization
// core. The bootstrap layer builds one Engine per process, hands it a
// transport and reads stats from it.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/watchroom/internal/app"
	"github.com/dkeye/watchroom/internal/app/orch"
	"github.com/dkeye/watchroom/internal/core"
	"github.com/dkeye/watchroom/internal/domain"
	"github.com/dkeye/watchroom/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type Engine struct {
	auth     *app.Authenticator
	sessions *app.Registry
	rooms    core.RoomManager
	presence *app.Presence
	orch     *orch.Orchestrator
	limiter  *app.RateLimiter
	policy   app.Policy

	startedAt time.Time
	cancel    context.CancelFunc

	// mu is held shared by Connect and Message and exclusively by Destroy,
	// so teardown never interleaves with a half-handled request.
	mu    sync.RWMutex
	state atomic.Int32
}

var _ core.Listener = (*Engine)(nil)

// New builds the engine, starts the presence sweep and registers the engine
// on transport. A nil transport is allowed for callers that drive the
// Listener methods themselves.
func New(transport core.Transport, secret string, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		auth:      app.NewAuthenticator(secret),
		sessions:  app.NewRegistry(),
		rooms:     core.NewRoomManager(),
		limiter:   app.NewRateLimiter(o.rateLimit, o.rateInterval),
		policy:    o.policy,
		startedAt: time.Now(),
	}
	e.presence = app.NewPresence(e.sessions, e.rooms, app.PresenceConfig{
		Grace:    o.grace,
		Timeout:  o.heartbeatTimeout,
		Interval: o.sweepInterval,
	}, e.timeout)
	e.orch = &orch.Orchestrator{
		Registry: e.sessions,
		Rooms:    e.rooms,
		Policy:   o.policy,
		Presence: e.presence,
		Notify:   o.notify,
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.presence.Start(ctx)

	if transport != nil {
		transport.Listen(e)
	}
	log.Info().Str("module", "engine").Dur("grace", o.grace).Dur("heartbeat_timeout", o.heartbeatTimeout).Msg("engine started")
	return e
}

func (e *Engine) State() State { return State(e.state.Load()) }

// Connect authenticates a new transport connection. On failure the
// connection is closed and nothing is allocated.
func (e *Engine) Connect(conn core.SignalConnection, hs core.Handshake) (core.SessionID, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.State() != Running {
		conn.Close(core.CloseServerShutdown)
		return "", domain.ErrEngineStopped
	}
	if err := e.auth.Authenticate(hs.Credential); err != nil {
		log.Warn().Str("module", "engine").Str("remote", hs.RemoteAddr).Msg("authentication failed")
		conn.Close(core.CloseAuthFailed)
		return "", err
	}

	user, err := domain.NewUser(hs.ClientID, hs.Nickname)
	if err != nil {
		log.Debug().Err(err).Str("module", "engine").Msg("nickname rejected, using default")
		user, _ = domain.NewUser(hs.ClientID, "")
	}
	sid := core.SessionID(uuid.NewString())
	ms := core.NewMemberSession(sid, domain.NewMember(user), conn)
	if err := e.sessions.Bind(ms); err != nil {
		conn.Close(core.CloseNormal)
		return "", err
	}
	log.Info().Str("module", "engine").Str("sid", string(sid)).Str("remote", hs.RemoteAddr).Msg("session admitted")
	return sid, nil
}

// Message handles one inbound frame. Failures are reported to the sender
// only and never close its connection.
func (e *Engine) Message(sid core.SessionID, data core.Frame) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.State() != Running {
		return
	}
	e.sessions.Touch(sid, time.Now())

	req, err := protocol.Decode(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "engine").Str("sid", string(sid)).Msg("malformed message dropped")
		e.fail(sid, err)
		return
	}

	switch r := req.(type) {
	case protocol.JoinRequest:
		if !e.renameOnJoin(sid, r.Name) {
			return
		}
		if _, err := e.orch.Join(sid, r.RoomID); err != nil {
			e.fail(sid, err)
		}
	case protocol.CreateRequest:
		if !e.renameOnJoin(sid, r.Name) {
			return
		}
		if _, err := e.orch.Create(sid); err != nil {
			e.fail(sid, err)
		}
	case protocol.LeaveRequest:
		left, err := e.orch.Leave(sid, r.RoomID)
		if err != nil {
			e.fail(sid, err)
			return
		}
		e.reply(sid, protocol.LeftFrame(left))
	case protocol.ControlRequest:
		if !e.limiter.Allow(string(sid)) {
			e.reply(sid, protocol.ErrorFrame(protocol.ErrRateLimited))
			return
		}
		if _, err := e.orch.Control(sid, r.Event); err != nil {
			e.fail(sid, err)
		}
	case protocol.PingRequest:
		e.reply(sid, protocol.PongFrame())
	case protocol.WhoAmIRequest:
		e.whoAmI(sid)
	case protocol.RenameRequest:
		if err := e.orch.Rename(sid, r.Name); err != nil {
			e.fail(sid, err)
			return
		}
		e.whoAmI(sid)
	}
}

func (e *Engine) renameOnJoin(sid core.SessionID, name string) bool {
	if name == "" {
		return true
	}
	if err := e.orch.Rename(sid, name); err != nil {
		e.fail(sid, err)
		return false
	}
	return true
}

func (e *Engine) whoAmI(sid core.SessionID) {
	id, err := e.orch.WhoAmI(sid)
	if err != nil {
		return
	}
	e.reply(sid, protocol.WhoAmIFrame(id.SID, id.Name, id.RoomID))
}

// Heartbeat records a transport keep-alive.
func (e *Engine) Heartbeat(sid core.SessionID) {
	e.sessions.Touch(sid, time.Now())
}

// Disconnect removes the session through the leave path. It takes no
// engine lock: the presence sweep calls it while Destroy waits for the
// sweep to stop.
func (e *Engine) Disconnect(sid core.SessionID) {
	e.limiter.Forget(string(sid))
	if f, ok := e.policy.(interface{ Forget(core.SessionID) }); ok {
		f.Forget(sid)
	}
	if e.orch.Disconnect(sid) {
		log.Info().Str("module", "engine").Str("sid", string(sid)).Msg("session disconnected")
	}
}

func (e *Engine) timeout(sid core.SessionID) {
	if s, ok := e.sessions.Get(sid); ok {
		s.Member().Signal().Close(core.CloseTimeout)
	}
	e.Disconnect(sid)
}

func (e *Engine) reply(sid core.SessionID, f core.Frame) {
	if f == nil {
		return
	}
	s, ok := e.sessions.Get(sid)
	if !ok {
		return
	}
	if err := s.Member().Signal().TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "engine").Str("sid", string(sid)).Msg("reply dropped")
	}
}

func (e *Engine) fail(sid core.SessionID, err error) {
	var code string
	switch {
	case errors.Is(err, domain.ErrMalformedEvent):
		code = protocol.ErrBadPayload
	case errors.Is(err, domain.ErrRoomNotFound):
		code = protocol.ErrRoomNotFound
	case errors.Is(err, domain.ErrNotMember):
		code = protocol.ErrNotMember
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		code = protocol.ErrInvalidName
	case errors.Is(err, domain.ErrSessionNotFound):
		return
	default:
		log.Error().Err(err).Str("module", "engine").Str("sid", string(sid)).Msg("request failed")
		return
	}
	log.Debug().Err(err).Str("module", "engine").Str("sid", string(sid)).Str("code", code).Msg("request rejected")
	e.reply(sid, protocol.ErrorFrame(code))
}

// Stats is the read-only rollup served by the bootstrap stats endpoint.
func (e *Engine) Stats() app.Stats {
	st := app.CollectStats(e.rooms, e.sessions)
	st.State = e.State().String()
	st.StartedAt = e.startedAt
	st.UptimeSeconds = e.Uptime().Seconds()
	return st
}

// Uptime is the time since New, without walking rooms or sessions.
func (e *Engine) Uptime() time.Duration {
	return time.Since(e.startedAt)
}

// Destroy closes every session and room and stops all timers. It returns
// once the engine is Stopped; later calls do nothing.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.CompareAndSwap(int32(Running), int32(Draining)) {
		return
	}
	log.Info().Str("module", "engine").Int("rooms", e.rooms.Len()).Int("sessions", e.sessions.Len()).Msg("draining")

	e.presence.Stop()
	e.cancel()

	rooms := e.rooms.Clear()
	closed := 0
	for _, sid := range e.sessions.IDs() {
		if e.sessions.Unbind(sid, func(s *app.Session) {
			s.SetRoom("")
			s.Member().Signal().Close(core.CloseServerShutdown)
		}) {
			closed++
		}
		e.limiter.Forget(string(sid))
	}

	e.state.Store(int32(Stopped))
	log.Info().Str("module", "engine").Int("rooms", len(rooms)).Int("sessions", closed).Msg("stopped")
}
