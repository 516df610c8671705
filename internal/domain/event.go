package domain

import (
	"fmt"
	"math"
	"time"
)

type EventKind string

const (
	KindPlay        EventKind = "play"
	KindPause       EventKind = "pause"
	KindSeek        EventKind = "seek"
	KindChangeVideo EventKind = "change-video"
)

// ParseEventKind maps a wire kind onto the closed set of event kinds.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(s); k {
	case KindPlay, KindPause, KindSeek, KindChangeVideo:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, s)
}

// EventPayload is the optional data of a control event. Nil fields were
// absent on the wire.
type EventPayload struct {
	Position *float64
	VideoID  *string
}

// ControlEvent is a validated play/pause/seek/change-video request. It
// carries no ordering of its own; the room assigns the sequence number.
type ControlEvent struct {
	RoomID  RoomID
	Kind    EventKind
	Payload EventPayload
}

// NewControlEvent validates the per-kind field contract.
func NewControlEvent(room RoomID, kind EventKind, p EventPayload) (ControlEvent, error) {
	if !room.Valid() {
		return ControlEvent{}, fmt.Errorf("%w: invalid room id", ErrMalformedEvent)
	}
	if p.Position != nil {
		pos := *p.Position
		if math.IsNaN(pos) || math.IsInf(pos, 0) || pos < 0 {
			return ControlEvent{}, fmt.Errorf("%w: invalid position %v", ErrMalformedEvent, pos)
		}
	}
	switch kind {
	case KindPlay, KindPause:
	case KindSeek:
		if p.Position == nil {
			return ControlEvent{}, fmt.Errorf("%w: seek without position", ErrMalformedEvent)
		}
	case KindChangeVideo:
		if p.VideoID == nil || *p.VideoID == "" {
			return ControlEvent{}, fmt.Errorf("%w: change-video without videoId", ErrMalformedEvent)
		}
	default:
		return ControlEvent{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, kind)
	}
	return ControlEvent{RoomID: room, Kind: kind, Payload: p}, nil
}

// Next derives the state that replaces prev once the event is accepted.
func (e ControlEvent) Next(prev PlaybackState, by string, at time.Time) PlaybackState {
	next := PlaybackState{
		VideoID:   prev.VideoID,
		Position:  prev.Position,
		Playing:   prev.Playing,
		UpdatedAt: at,
		UpdatedBy: by,
	}
	switch e.Kind {
	case KindPlay:
		next.Playing = true
	case KindPause:
		next.Playing = false
	case KindChangeVideo:
		next.VideoID = *e.Payload.VideoID
		next.Position = 0
	}
	if e.Payload.Position != nil {
		next.Position = *e.Payload.Position
	}
	return next
}
