package signal

import (
	"context"
	"time"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (s *Server) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				_ = c.conn.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			if c.isClosed() {
				return
			}
			if err := c.ping(); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				_ = c.conn.Close()
				return
			}
		}
	}
}

// readPump is the only goroutine that delivers Message, Heartbeat and
// Disconnect for sid.
func (s *Server) readPump(l core.Listener, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		l.Disconnect(sid)
		c.Close(core.CloseNormal)
	}()

	c.conn.SetReadLimit(s.opts.ReadLimit)
	extend := func() { _ = c.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait)) }
	extend()
	c.conn.SetPongHandler(func(string) error {
		extend()
		l.Heartbeat(sid)
		return nil
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.isClosed() {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		extend()
		if mt != websocket.TextMessage {
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Int("type", mt).Msg("non-text frame ignored")
			continue
		}
		l.Message(sid, core.Frame(data))
	}
}
