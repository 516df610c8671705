package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string    { return &v }

func TestNewControlEvent(t *testing.T) {
	tests := []struct {
		name    string
		room    RoomID
		kind    EventKind
		payload EventPayload
		wantErr bool
	}{
		{name: "play without position", room: "r1", kind: KindPlay},
		{name: "pause at position", room: "r1", kind: KindPause, payload: EventPayload{Position: f64(3)}},
		{name: "seek", room: "r1", kind: KindSeek, payload: EventPayload{Position: f64(42)}},
		{name: "seek without position", room: "r1", kind: KindSeek, wantErr: true},
		{name: "negative position", room: "r1", kind: KindSeek, payload: EventPayload{Position: f64(-1)}, wantErr: true},
		{name: "nan position", room: "r1", kind: KindPlay, payload: EventPayload{Position: f64(math.NaN())}, wantErr: true},
		{name: "change video", room: "r1", kind: KindChangeVideo, payload: EventPayload{VideoID: str("v2")}},
		{name: "change video without id", room: "r1", kind: KindChangeVideo, wantErr: true},
		{name: "change video empty id", room: "r1", kind: KindChangeVideo, payload: EventPayload{VideoID: str("")}, wantErr: true},
		{name: "empty room", room: "", kind: KindPlay, wantErr: true},
		{name: "unknown kind", room: "r1", kind: "rewind", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := NewControlEvent(tt.room, tt.kind, tt.payload)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedEvent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.room, ev.RoomID)
		})
	}
}

func TestParseEventKind(t *testing.T) {
	k, err := ParseEventKind("change-video")
	require.NoError(t, err)
	assert.Equal(t, KindChangeVideo, k)

	_, err = ParseEventKind("stop")
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestControlEventNext(t *testing.T) {
	at := time.Unix(100, 0)
	prev := PlaybackState{VideoID: "v1", Position: 12, Playing: false}

	play, _ := NewControlEvent("r1", KindPlay, EventPayload{})
	next := play.Next(prev, "a", at)
	assert.Equal(t, PlaybackState{VideoID: "v1", Position: 12, Playing: true, UpdatedAt: at, UpdatedBy: "a"}, next)

	seek, _ := NewControlEvent("r1", KindSeek, EventPayload{Position: f64(42)})
	next = seek.Next(next, "b", at)
	assert.True(t, next.Playing)
	assert.Equal(t, 42.0, next.Position)
	assert.Equal(t, "b", next.UpdatedBy)

	change, _ := NewControlEvent("r1", KindChangeVideo, EventPayload{VideoID: str("v2")})
	next = change.Next(next, "b", at)
	assert.Equal(t, "v2", next.VideoID)
	assert.Equal(t, 0.0, next.Position)

	pause, _ := NewControlEvent("r1", KindPause, EventPayload{Position: f64(7)})
	next = pause.Next(next, "a", at)
	assert.False(t, next.Playing)
	assert.Equal(t, 7.0, next.Position)
	assert.Equal(t, "v2", next.VideoID)
}
