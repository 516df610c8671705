package engine

import (
	"time"

	"github.com/dkeye/watchroom/internal/app"
)

const (
	DefaultGraceWindow      = 30 * time.Second
	DefaultHeartbeatTimeout = 45 * time.Second
	DefaultSweepInterval    = 5 * time.Second
	DefaultRateLimit        = 30
	DefaultRateInterval     = time.Second
)

type options struct {
	grace            time.Duration
	heartbeatTimeout time.Duration
	sweepInterval    time.Duration
	rateLimit        int
	rateInterval     time.Duration
	notify           bool
	policy           app.Policy
}

func defaultOptions() options {
	return options{
		grace:            DefaultGraceWindow,
		heartbeatTimeout: DefaultHeartbeatTimeout,
		sweepInterval:    DefaultSweepInterval,
		rateLimit:        DefaultRateLimit,
		rateInterval:     DefaultRateInterval,
		policy:           app.SimplePolicy{},
	}
}

type Option func(*options)

// WithGraceWindow sets how long an empty room survives.
func WithGraceWindow(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

// WithHeartbeat sets the heartbeat timeout and the sweep period. A
// non-positive interval disables the periodic sweep.
func WithHeartbeat(timeout, interval time.Duration) Option {
	return func(o *options) {
		o.heartbeatTimeout = timeout
		o.sweepInterval = interval
	}
}

// WithRateLimit caps control events per session per interval. A
// non-positive limit disables the cap.
func WithRateLimit(limit int, interval time.Duration) Option {
	return func(o *options) {
		o.rateLimit = limit
		o.rateInterval = interval
	}
}

// WithPresenceNotify enables member_joined/member_left notices.
func WithPresenceNotify(on bool) Option {
	return func(o *options) { o.notify = on }
}

func WithPolicy(p app.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithBackpressureStrikes drops frames for a slow member and kicks it on
// the n-th full queue. n <= 1 kicks at once.
func WithBackpressureStrikes(n int) Option {
	return func(o *options) {
		if n <= 1 {
			o.policy = app.SimplePolicy{}
			return
		}
		o.policy = app.NewStrikePolicy(n)
	}
}
