// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
	DefaultName    = "guest"
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewUser builds a user for a client token. An empty token gets a fresh id,
// an empty name falls back to DefaultName.
func NewUser(token, username string) (*User, error) {
	if len(token) == 0 || len(token) > MaxUserIDLen {
		token = uuid.NewString()
	}
	u := &User{ID: UserID(token), Username: DefaultName}
	if username == "" {
		return u, nil
	}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	username = strings.TrimSpace(username)
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}
