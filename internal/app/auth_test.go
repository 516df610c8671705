package app

import (
	"testing"

	"github.com/dkeye/watchroom/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAuthenticator(t *testing.T) {
	a := NewAuthenticator("s3cret")
	assert.NoError(t, a.Authenticate("s3cret"))
	assert.ErrorIs(t, a.Authenticate("s3cre"), domain.ErrAuthentication)
	assert.ErrorIs(t, a.Authenticate(""), domain.ErrAuthentication)
	assert.ErrorIs(t, a.Authenticate("s3cret "), domain.ErrAuthentication)
}

func TestAuthenticatorEmptySecretRejectsAll(t *testing.T) {
	a := NewAuthenticator("")
	assert.ErrorIs(t, a.Authenticate(""), domain.ErrAuthentication)
	assert.ErrorIs(t, a.Authenticate("anything"), domain.ErrAuthentication)
}
