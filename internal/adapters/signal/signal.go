package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Options struct {
	// AllowedOrigins lists accepted Origin headers; "*" accepts any.
	AllowedOrigins []string
	ReadLimit      int64
	// PingPeriod is how often the server pings; PongWait is how long it
	// waits for any inbound traffic before giving up on the peer.
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func DefaultOptions() Options {
	return Options{
		AllowedOrigins: []string{"*"},
		ReadLimit:      1 << 20,
		PingPeriod:     20 * time.Second,
		PongWait:       45 * time.Second,
		WriteWait:      5 * time.Second,
		SendBuffer:     64,
	}
}

// Server is the WebSocket transport. It upgrades requests, hands the
// connection to its listener and runs one read and one write pump per
// connection.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	listener core.Listener
}

var _ core.Transport = (*Server)(nil)

func NewServer(opts Options) *Server {
	d := DefaultOptions()
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = d.ReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = d.PingPeriod
	}
	if opts.PongWait <= opts.PingPeriod {
		opts.PongWait = opts.PingPeriod * 2
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = d.WriteWait
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = d.SendBuffer
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = d.AllowedOrigins
	}
	s := &Server{opts: opts}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) Listen(l core.Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	log.Warn().Str("module", "signal").Str("origin", origin).Msg("origin rejected")
	return false
}

// WsSignalConn is the per-connection send side handed to the engine.
type WsSignalConn struct {
	conn      *websocket.Conn
	send      chan core.Frame
	writeWait time.Duration

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn, buffer int, writeWait time.Duration) *WsSignalConn {
	return &WsSignalConn{
		conn:      ws,
		send:      make(chan core.Frame, buffer),
		writeWait: writeWait,
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops accepting frames at once and sends a close frame carrying
// reason. The socket is released before Close returns unless the peer is
// slow or silent, see releaseInBackground.
func (c *WsSignalConn) Close(reason core.CloseReason) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	if releaseInBackground(reason) {
		go c.shutdown(reason)
		return
	}
	c.shutdown(reason)
}

// releaseInBackground reports whether the close frame for reason may sit
// for up to WriteWait on a peer that stopped reading. Those closes come
// from the engine's broadcast and presence sweep, which must not stall.
func releaseInBackground(reason core.CloseReason) bool {
	return reason == core.CloseBackpressure || reason == core.CloseTimeout
}

func (c *WsSignalConn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (s *Server) HandleSignal(ctx context.Context, c *gin.Context) {
	s.mu.RLock()
	l := s.listener
	s.mu.RUnlock()
	if l == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not ready"})
		return
	}

	hs := handshake(c)
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("remote", hs.RemoteAddr).Msg("ws upgrade")
		return
	}
	conn := newConn(ws, s.opts.SendBuffer, s.opts.WriteWait)

	sid, err := l.Connect(conn, hs)
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("remote", hs.RemoteAddr).Msg("connection refused")
		conn.Close(core.CloseAuthFailed)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	go s.writePump(ctx, conn)
	go s.readPump(l, sid, conn)
}

func handshake(c *gin.Context) core.Handshake {
	cred := c.Query("auth")
	if h := c.GetHeader("Authorization"); h != "" {
		cred = strings.TrimPrefix(h, "Bearer ")
	}
	return core.Handshake{
		Credential: cred,
		Nickname:   c.Query("name"),
		ClientID:   c.GetString("client_token"),
		RemoteAddr: c.ClientIP(),
	}
}
