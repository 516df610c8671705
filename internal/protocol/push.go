package protocol

import (
	"encoding/json"

	"github.com/dkeye/watchroom/internal/core"
	"github.com/dkeye/watchroom/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	TypeJoin    = "join"
	TypeCreate  = "create"
	TypeLeave   = "leave"
	TypeControl = "control"
	TypePing    = "ping"
	TypeWhoAmI  = "whoami"
	TypeRename  = "rename"

	TypeSync         = "sync"
	TypeState        = "state"
	TypeLeft         = "left"
	TypePong         = "pong"
	TypeError        = "error"
	TypeMemberJoined = "member_joined"
	TypeMemberLeft   = "member_left"
)

// Error codes sent back to the author of a rejected request.
const (
	ErrBadPayload   = "bad_payload"
	ErrRoomNotFound = "room_not_found"
	ErrNotMember    = "not_member"
	ErrRateLimited  = "rate_limited"
	ErrInvalidName  = "invalid_name"
)

type PlaybackStateDTO struct {
	VideoID   string  `json:"videoId"`
	Position  float64 `json:"position"`
	Playing   bool    `json:"playing"`
	UpdatedAt int64   `json:"updatedAt"`
	UpdatedBy string  `json:"updatedBy,omitempty"`
}

func NewPlaybackStateDTO(s domain.PlaybackState) PlaybackStateDTO {
	dto := PlaybackStateDTO{
		VideoID:   s.VideoID,
		Position:  s.Position,
		Playing:   s.Playing,
		UpdatedBy: s.UpdatedBy,
	}
	if !s.UpdatedAt.IsZero() {
		dto.UpdatedAt = s.UpdatedAt.UnixMilli()
	}
	return dto
}

type StateMessage struct {
	Type          string           `json:"type"`
	RoomID        domain.RoomID    `json:"roomId"`
	PlaybackState PlaybackStateDTO `json:"playbackState"`
	Sequence      uint64           `json:"sequence"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type LeftMessage struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type WhoAmIMessage struct {
	Type   string         `json:"type"`
	SID    core.SessionID `json:"sid"`
	Name   string         `json:"name"`
	RoomID domain.RoomID  `json:"roomId,omitempty"`
}

type PresenceMessage struct {
	Type   string         `json:"type"`
	RoomID domain.RoomID  `json:"roomId"`
	Member core.MemberDTO `json:"member"`
	Count  int            `json:"count"`
}

// Encode marshals v; failures are logged and yield a nil frame.
func Encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "protocol").Msg("encode")
		return nil
	}
	return b
}

// SyncFrame is the point-to-point push a joiner receives.
func SyncFrame(s core.StateSnapshot) core.Frame {
	return Encode(stateMessage(TypeSync, s))
}

// StateFrame is the broadcast other members receive after a control event.
func StateFrame(s core.StateSnapshot) core.Frame {
	return Encode(stateMessage(TypeState, s))
}

func stateMessage(typ string, s core.StateSnapshot) StateMessage {
	return StateMessage{
		Type:          typ,
		RoomID:        s.RoomID,
		PlaybackState: NewPlaybackStateDTO(s.State),
		Sequence:      s.Sequence,
	}
}

func ErrorFrame(code string) core.Frame {
	return Encode(ErrorMessage{Type: TypeError, Error: code})
}

func LeftFrame(room domain.RoomID) core.Frame {
	return Encode(LeftMessage{Type: TypeLeft, RoomID: room})
}

func PongFrame() core.Frame {
	return Encode(struct {
		Type string `json:"type"`
	}{Type: TypePong})
}

func WhoAmIFrame(sid core.SessionID, name string, room domain.RoomID) core.Frame {
	return Encode(WhoAmIMessage{Type: TypeWhoAmI, SID: sid, Name: name, RoomID: room})
}

func PresenceFrame(typ string, room domain.RoomID, m core.MemberDTO, count int) core.Frame {
	return Encode(PresenceMessage{Type: typ, RoomID: room, Member: m, Count: count})
}
