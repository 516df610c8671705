package app

import (
	"sync"
	"testing"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/dkeye/watchroom/internal/domain"
	"github.com/stretchr/testify/require"
)

type recConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *recConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *recConn) Close(core.CloseReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func newSession(t *testing.T, sid string) core.MemberSession {
	t.Helper()
	u, err := domain.NewUser(sid, sid)
	require.NoError(t, err)
	return core.NewMemberSession(core.SessionID(sid), domain.NewMember(u), &recConn{})
}
