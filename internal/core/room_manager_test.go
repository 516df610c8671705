package core

import (
	"sync"
	"testing"

	"github.com/dkeye/watchroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateRaceYieldsOneRoom(t *testing.T) {
	m := NewRoomManager()
	const n = 32
	got := make([]*Room, n)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = m.GetOrCreate("r1")
		}(i)
	}
	close(start)
	wg.Wait()

	for _, r := range got {
		assert.Same(t, got[0], r)
	}
	assert.Equal(t, 1, m.Len())
}

func TestGetDoesNotCreate(t *testing.T) {
	m := NewRoomManager()
	_, err := m.Get("ghost")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestRemoveRequiresEmptyRoom(t *testing.T) {
	m := NewRoomManager()
	room := m.GetOrCreate("r1")
	a, _ := newMember(t, "a")
	_, err := room.Join(a, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Remove("r1"), domain.ErrRoomNotEmpty)
	room.Leave("a")
	require.NoError(t, m.Remove("r1"))
	assert.ErrorIs(t, m.Remove("r1"), domain.ErrRoomNotFound)
	assert.True(t, room.Closed())

	_, err = room.Join(a, nil)
	assert.ErrorIs(t, err, domain.ErrRoomClosed)
}

func TestExpireIgnoresReplacedInstance(t *testing.T) {
	m := NewRoomManager()
	old := m.GetOrCreate("r1")
	require.True(t, m.Expire(old))

	fresh := m.GetOrCreate("r1")
	require.NotSame(t, old, fresh)
	assert.False(t, m.Expire(old))
	assert.Equal(t, 1, m.Len())

	a, _ := newMember(t, "a")
	_, _ = fresh.Join(a, nil)
	assert.False(t, m.Expire(fresh))
}

func TestListAndClear(t *testing.T) {
	m := NewRoomManager()
	a, _ := newMember(t, "a")
	b, _ := newMember(t, "b")
	_, _ = m.GetOrCreate("r1").Join(a, nil)
	_, _ = m.GetOrCreate("r2").Join(b, nil)

	list := m.List()
	require.Len(t, list, 2)
	total := 0
	for _, info := range list {
		total += info.MemberCount
	}
	assert.Equal(t, 2, total)

	rooms := m.Clear()
	assert.Len(t, rooms, 2)
	assert.Equal(t, 0, m.Len())
	for _, r := range rooms {
		assert.True(t, r.Closed())
		assert.Equal(t, 0, r.MemberCount())
	}
}
