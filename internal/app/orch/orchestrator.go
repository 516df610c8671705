// Package orch is the sync protocol handler: it turns session requests into
// ordered room mutations and fans the results out.
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

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Presence *app.Presence
	// Notify enables member_joined/member_left notices to room mates.
	Notify bool
}

// Control applies one validated event to its room. The author gets no echo;
// everyone else gets the new state and sequence.
func (o *Orchestrator) Control(sid core.SessionID, ev domain.ControlEvent) (core.StateSnapshot, error) {
	var snap core.StateSnapshot
	err := o.Registry.Do(sid, func(s *app.Session) error {
		room, err := o.Rooms.Get(ev.RoomID)
		if err != nil {
			return err
		}
		var res core.PublishResult
		snap, res, err = room.Apply(sid, ev, protocol.StateFrame)
		if errors.Is(err, domain.ErrRoomClosed) {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(ev.RoomID)).Str("kind", string(ev.Kind)).Uint64("seq", snap.Sequence).Msg("event applied")
		o.handleDropped(room, res)
		return nil
	})
	if err != nil {
		return core.StateSnapshot{}, fmt.Errorf("control %s: %w", ev.Kind, err)
	}
	return snap, nil
}

// handleDropped only closes transports; the disconnect path removes the
// members, so no other session lock is taken here.
func (o *Orchestrator) handleDropped(room *core.Room, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(slow.ID())).Str("room", string(room.ID())).Msg("kicking slow member")
			slow.Signal().Close(core.CloseBackpressure)
		case app.DropFrame:
			log.Debug().Str("module", "orch").Str("sid", string(slow.ID())).Str("room", string(room.ID())).Msg("frame dropped for slow member")
		case app.NoAction:
		}
	}
}

func (o *Orchestrator) notify(room *core.Room, typ string, ms core.MemberSession) {
	if !o.Notify {
		return
	}
	u := ms.Meta().User()
	dto := core.MemberDTO{SID: ms.ID(), ID: u.ID, Username: u.Username}
	res := room.Broadcast(ms.ID(), protocol.PresenceFrame(typ, room.ID(), dto, room.MemberCount()))
	o.handleDropped(room, res)
}
