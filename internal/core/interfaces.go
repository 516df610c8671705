package core

import (
	"time"

	"github.com/dkeye/watchroom/internal/domain"
)

// Frame is a raw encoded message.
type Frame []byte

type SessionID string

// CloseReason tells the transport why the server closes a connection.
type CloseReason int

const (
	CloseNormal CloseReason = iota
	CloseAuthFailed
	CloseServerShutdown
	CloseTimeout
	CloseBackpressure
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the core only enqueues and closes.
type SignalConnection interface {
	// TrySend never blocks; a full queue is reported as an error.
	TrySend(Frame) error
	Close(CloseReason)
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() SessionID
	Meta() *domain.Member
	Signal() SignalConnection
}

// Handshake is what the transport learned about a connection before
// handing it to the engine.
type Handshake struct {
	Credential string
	Nickname   string
	ClientID   string
	RemoteAddr string
}

// Listener receives transport callbacks. Message, Heartbeat and Disconnect
// for one session are delivered from a single goroutine.
type Listener interface {
	Connect(conn SignalConnection, hs Handshake) (SessionID, error)
	Message(sid SessionID, data Frame)
	Heartbeat(sid SessionID)
	Disconnect(sid SessionID)
}

// Transport is the server handle the engine registers itself on.
type Transport interface {
	Listen(Listener)
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// StateSnapshot is a room's playback state together with the sequence
// number that produced it.
type StateSnapshot struct {
	RoomID   domain.RoomID
	State    domain.PlaybackState
	Sequence uint64
}

// Encoder turns a snapshot into a wire frame. A nil frame is not sent.
type Encoder func(StateSnapshot) Frame

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID      SessionID     `json:"sid"`
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

type RoomInfo struct {
	ID           domain.RoomID `json:"id"`
	MemberCount  int           `json:"memberCount"`
	Sequence     uint64        `json:"sequence"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastActivity time.Time     `json:"lastActivity"`
	Members      []MemberDTO   `json:"members"`
}

// RoomManager is the room registry: the only map shared by join, leave,
// control, expiry, stats and teardown.
type RoomManager interface {
	GetOrCreate(id domain.RoomID) *Room
	Get(id domain.RoomID) (*Room, error)
	Remove(id domain.RoomID) error
	Expire(room *Room) bool
	List() []RoomInfo
	Len() int
	Clear() []*Room
}
