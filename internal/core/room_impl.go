package core

import (
	"sync"
	"time"

	"github.com/dkeye/watchroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Room is a threadsafe in-memory watch party.
// It never closes adapter-owned resources.
type Room struct {
	id        domain.RoomID
	createdAt time.Time

	mu           sync.Mutex
	members      []MemberSession // join order
	state        domain.PlaybackState
	seq          uint64
	lastActivity time.Time
	expiry       *time.Timer
	closed       bool
}

func NewRoom(id domain.RoomID) *Room {
	now := time.Now()
	return &Room{
		id:           id,
		createdAt:    now,
		lastActivity: now,
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

// Join adds the member and pushes the current state to it alone. Joining
// twice keeps the original position in the member list and re-sends the
// state.
func (r *Room) Join(ms MemberSession, push Encoder) (StateSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return StateSnapshot{}, domain.ErrRoomClosed
	}
	if r.expiry != nil {
		r.expiry.Stop()
		r.expiry = nil
	}
	if r.indexLocked(ms.ID()) < 0 {
		r.members = append(r.members, ms)
	}
	r.lastActivity = time.Now()

	snap := r.snapshotLocked()
	if push != nil {
		if f := push(snap); f != nil {
			if err := ms.Signal().TrySend(f); err != nil {
				log.Warn().Err(err).Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(ms.ID())).Msg("state sync not delivered")
			}
		}
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(ms.ID())).Int("members", len(r.members)).Msg("member added")
	return snap, nil
}

// Leave removes the member and reports how many remain. The last leaver
// stamps the last-activity time.
func (r *Room) Leave(sid SessionID) (remaining int, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(sid)
	if i < 0 {
		return len(r.members), false
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	if len(r.members) == 0 {
		r.lastActivity = time.Now()
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Int("members", len(r.members)).Msg("member removed")
	return len(r.members), true
}

// Apply assigns the next sequence number to ev, replaces the playback state
// and pushes the result to every member except the author. No step here
// may block.
func (r *Room) Apply(from SessionID, ev domain.ControlEvent, push Encoder) (StateSnapshot, PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return StateSnapshot{}, PublishResult{}, domain.ErrRoomClosed
	}
	if r.indexLocked(from) < 0 {
		return StateSnapshot{}, PublishResult{}, domain.ErrNotMember
	}
	next := r.seq + 1
	if err := r.commitLocked(next, ev.Next(r.state, string(from), time.Now())); err != nil {
		return StateSnapshot{}, PublishResult{}, err
	}
	snap := r.snapshotLocked()
	var res PublishResult
	if push != nil {
		res = r.broadcastLocked(from, push(snap))
	}
	return snap, res, nil
}

// commitLocked is the only writer of seq and state.
func (r *Room) commitLocked(seq uint64, state domain.PlaybackState) error {
	if seq <= r.seq {
		return domain.ErrStaleEvent
	}
	r.seq = seq
	r.state = state
	r.lastActivity = state.UpdatedAt
	return nil
}

// Broadcast sends data to every member except from. An empty from reaches
// everyone.
func (r *Room) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(from, data)
}

func (r *Room) broadcastLocked(from SessionID, data Frame) PublishResult {
	res := PublishResult{}
	if data == nil {
		return res
	}
	for _, m := range r.members {
		if m.ID() == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *Room) Snapshot() StateSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() StateSnapshot {
	return StateSnapshot{RoomID: r.id, State: r.state, Sequence: r.seq}
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) Has(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexLocked(sid) >= 0
}

func (r *Room) Members() []MemberSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MemberSession, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := RoomInfo{
		ID:           r.id,
		MemberCount:  len(r.members),
		Sequence:     r.seq,
		CreatedAt:    r.createdAt,
		LastActivity: r.lastActivity,
		Members:      make([]MemberDTO, 0, len(r.members)),
	}
	for _, ms := range r.members {
		u := ms.Meta().User()
		out.Members = append(out.Members, MemberDTO{SID: ms.ID(), ID: u.ID, Username: u.Username})
	}
	return out
}

// ArmExpiry schedules fn after d if the room is still open and empty.
// A later Join or close cancels it.
func (r *Room) ArmExpiry(d time.Duration, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(r.members) > 0 {
		return false
	}
	if r.expiry != nil {
		r.expiry.Stop()
	}
	r.expiry = time.AfterFunc(d, fn)
	return true
}

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Room) closeIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.closeLocked()
	return true
}

// close shuts the room regardless of members.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = nil
	r.closeLocked()
}

func (r *Room) closeLocked() {
	r.closed = true
	if r.expiry != nil {
		r.expiry.Stop()
		r.expiry = nil
	}
}

func (r *Room) indexLocked(sid SessionID) int {
	for i, m := range r.members {
		if m.ID() == sid {
			return i
		}
	}
	return -1
}
