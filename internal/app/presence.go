package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/rs/zerolog/log"
)

type PresenceConfig struct {
	// Grace is how long an empty room is kept for reconnects.
	Grace time.Duration
	// Timeout is the heartbeat age after which a session is dropped.
	Timeout time.Duration
	// Interval is the sweep period.
	Interval time.Duration
}

// Presence ages out silent sessions and empty rooms.
type Presence struct {
	sessions  *Registry
	rooms     core.RoomManager
	cfg       PresenceConfig
	onTimeout func(core.SessionID)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPresence wires the tracker; onTimeout must remove the session through
// the regular leave path.
func NewPresence(sessions *Registry, rooms core.RoomManager, cfg PresenceConfig, onTimeout func(core.SessionID)) *Presence {
	return &Presence{
		sessions:  sessions,
		rooms:     rooms,
		cfg:       cfg,
		onTimeout: onTimeout,
	}
}

// Start launches the sweep loop. It is a no-op when already running or when
// the sweep is disabled.
func (p *Presence) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil || p.cfg.Interval <= 0 {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop cancels the sweep and waits for it to exit.
func (p *Presence) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *Presence) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.presence").Msg("sweep stopped")
			return
		case now := <-ticker.C:
			p.Sweep(now)
		}
	}
}

// Sweep drops every session whose heartbeat is older than the timeout and
// returns their ids.
func (p *Presence) Sweep(now time.Time) []core.SessionID {
	if p.cfg.Timeout <= 0 {
		return nil
	}
	stale := p.sessions.Stale(now.Add(-p.cfg.Timeout))
	for _, sid := range stale {
		log.Info().Str("module", "app.presence").Str("sid", string(sid)).Msg("heartbeat timeout")
		if p.onTimeout != nil {
			p.onTimeout(sid)
		}
	}
	return stale
}

// ArmExpiry schedules removal of an empty room after the grace window.
func (p *Presence) ArmExpiry(room *core.Room) bool {
	armed := room.ArmExpiry(p.cfg.Grace, func() {
		if p.rooms.Expire(room) {
			log.Info().Str("module", "app.presence").Str("room", string(room.ID())).Dur("grace", p.cfg.Grace).Msg("empty room expired")
		}
	})
	if armed {
		log.Debug().Str("module", "app.presence").Str("room", string(room.ID())).Dur("grace", p.cfg.Grace).Msg("expiry armed")
	}
	return armed
}
