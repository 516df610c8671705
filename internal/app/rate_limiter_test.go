package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Unix(1000, 0)

	assert.True(t, rl.allowAt("a", now))
	assert.True(t, rl.allowAt("a", now.Add(100*time.Millisecond)))
	assert.False(t, rl.allowAt("a", now.Add(200*time.Millisecond)))
	assert.True(t, rl.allowAt("b", now.Add(200*time.Millisecond)), "limits are per session")

	assert.True(t, rl.allowAt("a", now.Add(1050*time.Millisecond)))
	assert.False(t, rl.allowAt("a", now.Add(1060*time.Millisecond)))

	rl.Forget("a")
	assert.True(t, rl.allowAt("a", now.Add(1070*time.Millisecond)))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("a"))
	}
}
