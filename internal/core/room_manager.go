package core

import (
	"sort"
	"sync"

	"github.com/dkeye/watchroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room
}

func NewRoomManager() RoomManager {
	return &roomManager{rooms: make(map[domain.RoomID]*Room)}
}

func (m *roomManager) GetOrCreate(id domain.RoomID) *Room {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return room
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[id]; ok {
		return room
	}
	room = NewRoom(id)
	m.rooms[id] = room
	log.Info().Str("module", "core.rooms").Str("room", string(id)).Msg("room created")
	return room
}

func (m *roomManager) Get(id domain.RoomID) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (m *roomManager) Remove(id domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if !room.closeIfEmpty() {
		return domain.ErrRoomNotEmpty
	}
	delete(m.rooms, id)
	log.Info().Str("module", "core.rooms").Str("room", string(id)).Msg("room removed")
	return nil
}

// Expire removes room only if it is still the registered instance for its
// id and still empty.
func (m *roomManager) Expire(room *Room) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[room.id]; !ok || cur != room {
		return false
	}
	if !room.closeIfEmpty() {
		return false
	}
	delete(m.rooms, room.id)
	log.Info().Str("module", "core.rooms").Str("room", string(room.id)).Msg("room expired")
	return true
}

func (m *roomManager) List() []RoomInfo {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *roomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Clear closes every room and empties the registry.
func (m *roomManager) Clear() []*Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Room, 0, len(m.rooms))
	for id, r := range m.rooms {
		r.close()
		out = append(out, r)
		delete(m.rooms, id)
	}
	log.Info().Str("module", "core.rooms").Int("rooms", len(out)).Msg("registry cleared")
	return out
}
