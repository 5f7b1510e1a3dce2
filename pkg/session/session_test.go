package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"workorder-autopilot/pkg/config"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()

	cfg := &config.Config{}
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Session.CookieName = "autopilot_session"
	cfg.Session.TTL = ttl

	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.Issue(42, "admin@example.com", true)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "admin@example.com", claims.Email)
	require.True(t, claims.IsAdmin)
}

func TestVerifyExpired(t *testing.T) {
	m := newTestManager(t, -time.Minute)

	token, err := m.Issue(1, "user@example.com", false)
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
}

func TestVerifyTampered(t *testing.T) {
	m := newTestManager(t, time.Hour)
	other := newTestManager(t, time.Hour)
	other.secret = []byte("ffffffffffffffffffffffffffffffff")

	token, err := m.Issue(1, "user@example.com", false)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.Error(t, err)

	_, err = m.Verify("not.a.token")
	require.Error(t, err)
}
