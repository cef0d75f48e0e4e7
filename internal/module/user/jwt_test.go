package user

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTManager() *JWTManager {
	return NewJWTManager(&JWTConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	})
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	m := testJWTManager()
	u := &User{
		ID:    uuid.New(),
		Email: "worker@example.com",
		Role:  RoleWorker,
	}

	token, expiresAt, err := m.GenerateAccessToken(u)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.Email, claims.Email)
	assert.Equal(t, "worker", claims.Role)
}

func TestJWTManager_RejectsTamperedToken(t *testing.T) {
	m := testJWTManager()
	u := &User{ID: uuid.New(), Email: "a@b.c", Role: RoleClient}

	token, _, err := m.GenerateAccessToken(u)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token + "x")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	m := testJWTManager()
	u := &User{ID: uuid.New(), Email: "a@b.c", Role: RoleClient}

	token, _, err := m.GenerateAccessToken(u)
	require.NoError(t, err)

	other := NewJWTManager(&JWTConfig{Secret: "other-secret", AccessTokenExpiry: time.Minute, RefreshTokenExpiry: time.Hour})
	_, err = other.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RefreshTokenHashMatches(t *testing.T) {
	m := testJWTManager()

	raw, hash, expiresAt, err := m.GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, hash, m.HashRefreshToken(raw))
	assert.True(t, expiresAt.After(time.Now()))
}
