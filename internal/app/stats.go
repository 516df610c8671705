package app

import (
	"time"

	"github.com/dkeye/watchroom/internal/core"
)

type Stats struct {
	RoomCount     int             `json:"roomCount"`
	SessionCount  int             `json:"sessionCount"`
	MemberCount   int             `json:"memberCount"`
	Rooms         []core.RoomInfo `json:"rooms"`
	State         string          `json:"state,omitempty"`
	StartedAt     time.Time       `json:"startedAt,omitempty"`
	UptimeSeconds float64         `json:"uptimeSeconds,omitempty"`
}

// CollectStats is a read-only rollup; every figure is copied under the
// owning lock.
func CollectStats(rooms core.RoomManager, sessions *Registry) Stats {
	list := rooms.List()
	st := Stats{
		RoomCount:    len(list),
		SessionCount: sessions.Len(),
		Rooms:        list,
	}
	for _, r := range list {
		st.MemberCount += r.MemberCount
	}
	return st
}
