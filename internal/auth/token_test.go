package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/magnetacademy/tma-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret-32-chars-ok!"

func testUser() *models.AdminUser {
	return &models.AdminUser{
		ID:       "user-1",
		Username: "admin",
		Email:    "admin@tma.com",
		FullName: "System Administrator",
		Role:     models.RoleSuperAdmin,
		IsActive: true,
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec(testSecret, 24*time.Hour)

	token, err := codec.Issue(testUser(), "203.0.113.7", "Mozilla/5.0")
	require.NoError(t, err)

	session := codec.Verify(token)
	require.NotNil(t, session)

	assert.True(t, session.IsValid)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "admin", session.Username)
	assert.Equal(t, models.RoleSuperAdmin, session.Role)
	assert.Equal(t, "203.0.113.7", session.NetworkOrigin)
	assert.Equal(t, "Mozilla/5.0", session.ClientAgent)
	assert.Len(t, session.SessionID, 64, "session id should be 32 random bytes hex-encoded")
	assert.Greater(t, session.ExpiresAtMs, session.IssuedAtMs)
}

func TestTokenCodec_FreshSessionIDPerIssue(t *testing.T) {
	codec := NewTokenCodec(testSecret, 24*time.Hour)
	user := testUser()

	first, err := codec.Issue(user, "203.0.113.7", "Mozilla/5.0")
	require.NoError(t, err)
	second, err := codec.Issue(user, "203.0.113.7", "Mozilla/5.0")
	require.NoError(t, err)

	s1 := codec.Verify(first)
	s2 := codec.Verify(second)
	require.NotNil(t, s1)
	require.NotNil(t, s2)
	assert.NotEqual(t, s1.SessionID, s2.SessionID,
		"two logins by the same user must produce unlinkable sessions")
}

func TestTokenCodec_ExpiredButSigned(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	issuedAt := time.Now().Add(-2 * time.Hour)
	codec.now = func() time.Time { return issuedAt }
	token, err := codec.Issue(testUser(), "203.0.113.7", "Mozilla/5.0")
	require.NoError(t, err)

	codec.now = time.Now
	session := codec.Verify(token)

	// Authentic but stale: identity survives for audit, IsValid does not.
	require.NotNil(t, session, "expired-but-signed must be distinguishable from tampered")
	assert.False(t, session.IsValid)
	assert.Equal(t, "user-1", session.UserID)
}

func TestTokenCodec_TamperedToken(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	token, err := codec.Issue(testUser(), "203.0.113.7", "Mozilla/5.0")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	assert.Nil(t, codec.Verify(tampered))
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	issuer := NewTokenCodec(testSecret, time.Hour)
	verifier := NewTokenCodec("a-completely-different-secret-!!", time.Hour)

	token, err := issuer.Issue(testUser(), "203.0.113.7", "Mozilla/5.0")
	require.NoError(t, err)

	assert.Nil(t, verifier.Verify(token))
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	for _, garbage := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		assert.Nil(t, codec.Verify(garbage), "garbage %q should verify to nil", garbage)
	}
}
