package app

import (
	"crypto/subtle"

	"github.com/dkeye/watchroom/internal/domain"
)

// Authenticator admits connections presenting the shared secret.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Authenticate(credential string) error {
	if len(a.secret) == 0 {
		return domain.ErrAuthentication
	}
	if subtle.ConstantTimeCompare([]byte(credential), a.secret) != 1 {
		return domain.ErrAuthentication
	}
	return nil
}
