package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokenStore struct {
	token string
}

func (m *memTokenStore) Token() (string, error)       { return m.token, nil }
func (m *memTokenStore) SetToken(token string) error  { m.token = token; return nil }
func (m *memTokenStore) DeleteToken() error           { m.token = ""; return nil }

func TestAdminStartsLoggedOutWithoutToken(t *testing.T) {
	admin, err := NewAdmin(&memTokenStore{})
	require.NoError(t, err)
	assert.False(t, admin.Authenticated())
	assert.Empty(t, admin.Token())
}

func TestAdminRestoresSessionFromStoredToken(t *testing.T) {
	store := &memTokenStore{token: "tok-123"}

	// Presence of a stored token is treated as validity.
	admin, err := NewAdmin(store)
	require.NoError(t, err)
	assert.True(t, admin.Authenticated())
	assert.Equal(t, "tok-123", admin.Token())
}

func TestAdminLoginLogout(t *testing.T) {
	store := &memTokenStore{}
	admin, err := NewAdmin(store)
	require.NoError(t, err)

	require.NoError(t, admin.Login("tok-456"))
	assert.True(t, admin.Authenticated())
	assert.Equal(t, "tok-456", store.token)

	// Reinitializing from the same store keeps the session without
	// re-entering credentials.
	again, err := NewAdmin(store)
	require.NoError(t, err)
	assert.True(t, again.Authenticated())

	require.NoError(t, admin.Logout())
	assert.False(t, admin.Authenticated())
	assert.Empty(t, store.token)
}
