// Package protocol holds the JSON wire format spoken over the signal
// connection.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/watchroom/internal/domain"
)

// Request is one decoded client message. The set of implementations is
// closed: JoinRequest, CreateRequest, LeaveRequest, ControlRequest,
// PingRequest, WhoAmIRequest, RenameRequest.
type Request interface {
	request()
}

type JoinRequest struct {
	RoomID domain.RoomID
	Name   string
}

type CreateRequest struct {
	Name string
}

type LeaveRequest struct {
	RoomID domain.RoomID
}

type ControlRequest struct {
	Event domain.ControlEvent
}

type PingRequest struct{}

type WhoAmIRequest struct{}

type RenameRequest struct {
	Name string
}

func (JoinRequest) request()    {}
func (CreateRequest) request()  {}
func (LeaveRequest) request()   {}
func (ControlRequest) request() {}
func (PingRequest) request()    {}
func (WhoAmIRequest) request()  {}
func (RenameRequest) request()  {}

type envelope struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId"`
	Kind    string          `json:"kind"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

type controlPayload struct {
	Position *float64 `json:"position"`
	VideoID  *string  `json:"videoId"`
}

// Decode parses and validates one inbound frame. Every failure wraps
// domain.ErrMalformedEvent.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}

	switch env.Type {
	case TypeJoin:
		id := domain.RoomID(env.RoomID)
		if !id.Valid() {
			return nil, fmt.Errorf("%w: join without valid roomId", domain.ErrMalformedEvent)
		}
		return JoinRequest{RoomID: id, Name: env.Name}, nil
	case TypeCreate:
		return CreateRequest{Name: env.Name}, nil
	case TypeLeave:
		return LeaveRequest{RoomID: domain.RoomID(env.RoomID)}, nil
	case TypeControl:
		return decodeControl(env)
	case TypePing:
		return PingRequest{}, nil
	case TypeWhoAmI:
		return WhoAmIRequest{}, nil
	case TypeRename:
		return RenameRequest{Name: env.Name}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", domain.ErrMalformedEvent, env.Type)
}

func decodeControl(env envelope) (Request, error) {
	kind, err := domain.ParseEventKind(env.Kind)
	if err != nil {
		return nil, err
	}
	var p controlPayload
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: payload: %v", domain.ErrMalformedEvent, err)
		}
	}
	ev, err := domain.NewControlEvent(domain.RoomID(env.RoomID), kind, domain.EventPayload{
		Position: p.Position,
		VideoID:  p.VideoID,
	})
	if err != nil {
		return nil, err
	}
	return ControlRequest{Event: ev}, nil
}
