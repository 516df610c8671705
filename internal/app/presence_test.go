package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/dkeye/watchroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceSweepDropsSilentSessions(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Bind(newSession(t, "quiet")))
	require.NoError(t, reg.Bind(newSession(t, "chatty")))

	var dropped []core.SessionID
	p := NewPresence(reg, core.NewRoomManager(), PresenceConfig{Timeout: 45 * time.Second}, func(sid core.SessionID) {
		dropped = append(dropped, sid)
		reg.Unbind(sid, nil)
	})

	now := time.Now()
	reg.Touch("quiet", now.Add(-time.Minute))
	reg.Touch("chatty", now)

	assert.Equal(t, []core.SessionID{"quiet"}, p.Sweep(now))
	assert.Equal(t, []core.SessionID{"quiet"}, dropped)
	assert.Equal(t, 1, reg.Len())
}

func TestPresenceLoopStartStop(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Bind(newSession(t, "quiet")))
	reg.Touch("quiet", time.Now().Add(-time.Hour))

	var mu sync.Mutex
	var dropped []core.SessionID
	p := NewPresence(reg, core.NewRoomManager(), PresenceConfig{Timeout: time.Second, Interval: 5 * time.Millisecond}, func(sid core.SessionID) {
		mu.Lock()
		dropped = append(dropped, sid)
		mu.Unlock()
		reg.Unbind(sid, nil)
	})
	p.Start(context.Background())
	p.Start(context.Background())

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []core.SessionID{"quiet"}, dropped)
}

func TestPresenceExpiresEmptyRoomAfterGrace(t *testing.T) {
	rooms := core.NewRoomManager()
	p := NewPresence(NewRegistry(), rooms, PresenceConfig{Grace: 20 * time.Millisecond}, nil)

	room := rooms.GetOrCreate("r1")
	require.True(t, p.ArmExpiry(room))
	_, err := rooms.Get("r1")
	require.NoError(t, err, "room must survive until the grace window ends")

	assert.Eventually(t, func() bool {
		_, err := rooms.Get("r1")
		return err == domain.ErrRoomNotFound
	}, time.Second, 5*time.Millisecond)
	assert.True(t, room.Closed())
}

func TestPresenceRejoinWithinGraceKeepsRoom(t *testing.T) {
	rooms := core.NewRoomManager()
	p := NewPresence(NewRegistry(), rooms, PresenceConfig{Grace: 30 * time.Millisecond}, nil)

	room := rooms.GetOrCreate("r1")
	require.True(t, p.ArmExpiry(room))
	_, err := room.Join(newSession(t, "a"), nil)
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	got, err := rooms.Get("r1")
	require.NoError(t, err)
	assert.Same(t, room, got)
}
