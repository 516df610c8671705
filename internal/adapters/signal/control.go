package signal

import (
	"time"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// closeFrame maps a close reason to its WebSocket close code and text.
func closeFrame(reason core.CloseReason) (int, string) {
	switch reason {
	case core.CloseAuthFailed:
		return websocket.ClosePolicyViolation, "authentication failed"
	case core.CloseServerShutdown:
		return websocket.CloseGoingAway, "server closing"
	case core.CloseTimeout:
		return websocket.CloseGoingAway, "heartbeat timeout"
	case core.CloseBackpressure:
		return websocket.CloseTryAgainLater, "too slow"
	}
	return websocket.CloseNormalClosure, ""
}

func (c *WsSignalConn) shutdown(reason core.CloseReason) {
	code, text := closeFrame(reason)
	msg := websocket.FormatCloseMessage(code, text)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil && err != websocket.ErrCloseSent {
		log.Debug().Err(err).Str("module", "signal").Int("code", code).Msg("close frame not sent")
	}
	_ = c.conn.Close()
}

func (c *WsSignalConn) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait))
}
