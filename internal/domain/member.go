package domain

import (
	"sync"
	"time"
)

// Member represents user's participation meta for a session.
// No transport or lifecycle logic here.
type Member struct {
	mu       sync.RWMutex
	user     User
	JoinedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{user: *user, JoinedAt: time.Now()}
}

// User returns a copy; renames may happen concurrently with room reads.
func (m *Member) User() User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Member) Rename(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.SetUsername(username)
}
