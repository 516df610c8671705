package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("token-1", "")
	require.NoError(t, err)
	assert.Equal(t, UserID("token-1"), u.ID)
	assert.Equal(t, DefaultName, u.Username)

	u, err = NewUser("", "ann")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ann", u.Username)

	_, err = NewUser("t", strings.Repeat("x", MaxUsernameLen+1))
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}

func TestSetUsername(t *testing.T) {
	u := &User{ID: "id"}
	assert.ErrorIs(t, u.SetUsername("   "), ErrUsernameEmpty)
	require.NoError(t, u.SetUsername(" bob "))
	assert.Equal(t, "bob", u.Username)
}

func TestMemberRename(t *testing.T) {
	u, err := NewUser("t", "ann")
	require.NoError(t, err)
	m := NewMember(u)

	require.NoError(t, m.Rename("bob"))
	assert.Equal(t, "bob", m.User().Username)
	assert.Equal(t, "ann", u.Username)

	assert.ErrorIs(t, m.Rename(""), ErrUsernameEmpty)
	assert.Equal(t, "bob", m.User().Username)
}
