package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/watchroom/internal/app"
	"github.com/dkeye/watchroom/internal/core"
	"github.com/dkeye/watchroom/internal/domain"
	"github.com/dkeye/watchroom/internal/protocol"
	"github.com/rs/zerolog/log"
)

// A joiner can lose a race with expiry at most once per grace window, so a
// couple of retries is plenty.
const maxJoinAttempts = 3

// Join moves the session into roomID, creating the room on first join. The
// joiner alone receives the current state.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID) (core.StateSnapshot, error) {
	var snap core.StateSnapshot
	err := o.Registry.Do(sid, func(s *app.Session) error {
		if cur := s.RoomID(); cur != "" && cur != roomID {
			o.leaveLocked(s)
			log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(cur)).Msg("left previous room")
		}
		var err error
		snap, err = o.joinLocked(s, roomID)
		return err
	})
	if err != nil {
		return core.StateSnapshot{}, fmt.Errorf("join %s: %w", roomID, err)
	}
	return snap, nil
}

// Create joins a freshly generated room.
func (o *Orchestrator) Create(sid core.SessionID) (core.StateSnapshot, error) {
	return o.Join(sid, domain.NewRoomID())
}

func (o *Orchestrator) joinLocked(s *app.Session, roomID domain.RoomID) (core.StateSnapshot, error) {
	ms := s.Member()
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		room := o.Rooms.GetOrCreate(roomID)
		rejoin := room.Has(ms.ID())
		snap, err := room.Join(ms, protocol.SyncFrame)
		if errors.Is(err, domain.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return core.StateSnapshot{}, err
		}
		s.SetRoom(roomID)
		log.Info().Str("module", "orch").Str("sid", string(ms.ID())).Str("room", string(roomID)).Uint64("seq", snap.Sequence).Msg("joined room")
		if !rejoin {
			o.notify(room, protocol.TypeMemberJoined, ms)
		}
		return snap, nil
	}
	return core.StateSnapshot{}, domain.ErrRoomClosed
}

// Leave is the explicit leave request. An empty roomID means the current
// room.
func (o *Orchestrator) Leave(sid core.SessionID, roomID domain.RoomID) (domain.RoomID, error) {
	var left domain.RoomID
	err := o.Registry.Do(sid, func(s *app.Session) error {
		cur := s.RoomID()
		if cur == "" || (roomID != "" && roomID != cur) {
			return domain.ErrNotMember
		}
		left = o.leaveLocked(s)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("leave %s: %w", roomID, err)
	}
	return left, nil
}

// Disconnect drops the session from the table and its room. Safe to call
// more than once.
func (o *Orchestrator) Disconnect(sid core.SessionID) bool {
	return o.Registry.Unbind(sid, func(s *app.Session) {
		o.leaveLocked(s)
	})
}

// leaveLocked removes s from its room and arms expiry when the room turns
// empty. It returns the room left, if any.
func (o *Orchestrator) leaveLocked(s *app.Session) domain.RoomID {
	roomID := s.RoomID()
	if roomID == "" {
		return ""
	}
	s.SetRoom("")
	room, err := o.Rooms.Get(roomID)
	if err != nil {
		return roomID
	}
	remaining, removed := room.Leave(s.ID())
	if !removed {
		return roomID
	}
	if remaining == 0 {
		if o.Presence != nil {
			o.Presence.ArmExpiry(room)
		}
		return roomID
	}
	o.notify(room, protocol.TypeMemberLeft, s.Member())
	return roomID
}

func (o *Orchestrator) Rename(sid core.SessionID, name string) error {
	return o.Registry.Do(sid, func(s *app.Session) error {
		if err := s.Member().Meta().Rename(name); err != nil {
			return err
		}
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("name", name).Msg("rename")
		return nil
	})
}

type Identity struct {
	SID    core.SessionID
	Name   string
	RoomID domain.RoomID
}

func (o *Orchestrator) WhoAmI(sid core.SessionID) (Identity, error) {
	var id Identity
	err := o.Registry.Do(sid, func(s *app.Session) error {
		id = Identity{SID: sid, Name: s.Member().Meta().User().Username, RoomID: s.RoomID()}
		return nil
	})
	return id, err
}
