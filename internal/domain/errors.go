package domain

import "errors"

var (
	ErrAuthentication  = errors.New("authentication failed")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomClosed      = errors.New("room closed")
	ErrRoomNotEmpty    = errors.New("room not empty")
	ErrStaleEvent      = errors.New("stale event")
	ErrMalformedEvent  = errors.New("malformed event")
	ErrNotMember       = errors.New("session is not a member of the room")
	ErrSessionNotFound = errors.New("session not found")
	ErrEngineStopped   = errors.New("engine is not running")
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)
