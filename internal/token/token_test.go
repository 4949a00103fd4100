package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	raw, err := m.IssueAccess("user-1", "jane@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := m.VerifyAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	raw, err := m.IssueRefresh("user-2", "bob@example.com", "company")
	require.NoError(t, err)

	claims, err := m.VerifyRefresh(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-2", claims.UserID)
	assert.Equal(t, "company", claims.Role)
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	m := newTestManager()

	access, err := m.IssueAccess("user-1", "jane@example.com", "user")
	require.NoError(t, err)
	refresh, err := m.IssueRefresh("user-1", "jane@example.com", "user")
	require.NoError(t, err)

	_, err = m.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken, "access token must not verify as refresh")

	_, err = m.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token must not verify as access")
}

func TestOtherManagerRejectsToken(t *testing.T) {
	m := newTestManager()
	other := NewManager("different-access", "different-refresh", 15*time.Minute, 7*24*time.Hour)

	raw, err := m.IssueAccess("user-1", "jane@example.com", "user")
	require.NoError(t, err)

	_, err = other.VerifyAccess(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)

	raw, err := m.IssueAccess("user-1", "jane@example.com", "user")
	require.NoError(t, err)

	_, err = m.VerifyAccess(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBackToBackTokensDiffer(t *testing.T) {
	m := newTestManager()

	a, err := m.IssueRefresh("user-1", "jane@example.com", "user")
	require.NoError(t, err)
	b, err := m.IssueRefresh("user-1", "jane@example.com", "user")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "tokens minted in the same second must still differ")
}

func TestGarbageRejected(t *testing.T) {
	m := newTestManager()

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := m.VerifyAccess(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
