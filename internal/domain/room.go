package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxRoomIDLen = 64

type RoomID string

// NewRoomID returns a generated identifier for rooms created without one.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

func (id RoomID) Valid() bool {
	return len(id) > 0 && len(id) <= MaxRoomIDLen
}

// PlaybackState is the authoritative player state of a room. It is replaced
// as a whole on every accepted control event.
type PlaybackState struct {
	VideoID   string
	Position  float64
	Playing   bool
	UpdatedAt time.Time
	UpdatedBy string
}
