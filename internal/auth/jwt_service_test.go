package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "notesapi/internal/errors"
)

const testSecret = "test-secret"

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	userID := uuid.New()

	issued, err := svc.GenerateAccessToken(userID, "kcmaxwell")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "kcmaxwell", claims.Username)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestJWTService_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTokenExpiry, NewJWTService(testSecret, 0).TTL())
	assert.Equal(t, DefaultRefreshExpiry, NewJWTService(testSecret, 0).RefreshTTL())
	assert.Equal(t, DefaultRefreshExpiry, NewJWTService(testSecret, 0).WithRefreshTTL(0).RefreshTTL())
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour).WithRefreshTTL(24 * time.Hour)
	userID := uuid.New()

	pair, err := svc.GenerateTokenPair(userID, "kcmaxwell", "session-1")
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access.ID, pair.Refresh.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), pair.Access.ExpiresAt, 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), pair.Refresh.ExpiresAt, 5*time.Second)

	access, err := svc.ValidateToken(pair.Access.Token)
	require.NoError(t, err)
	assert.False(t, access.IsRefresh())
	assert.Equal(t, "session-1", access.SessionID)

	refresh, err := svc.ValidateRefreshToken(pair.Refresh.Token)
	require.NoError(t, err)
	assert.True(t, refresh.IsRefresh())
	assert.Equal(t, "session-1", refresh.SessionID)
	assert.Equal(t, userID.String(), refresh.UserID)
	assert.Equal(t, pair.Refresh.ID, refresh.ID)
}

func TestJWTService_ValidateRefreshToken_Failures(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	userID := uuid.New()

	pair, err := svc.GenerateTokenPair(userID, "kcmaxwell", "session-1")
	require.NoError(t, err)
	expired, err := svc.WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }).
		GenerateTokenPair(userID, "kcmaxwell", "session-1")
	require.NoError(t, err)
	foreign, err := NewJWTService("another-secret", time.Hour).GenerateTokenPair(userID, "kcmaxwell", "session-1")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"access token": pair.Access.Token,
		"expired":      expired.Refresh.Token,
		"wrong secret": foreign.Refresh.Token,
		"garbage":      "not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateRefreshToken(token)
			assert.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
		})
	}
}

func TestJWTService_ValidateToken_Failures(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	past := func() time.Time { return time.Now().Add(-2 * time.Hour) }

	expired, err := svc.WithClock(past).GenerateAccessToken(uuid.New(), "old")
	require.NoError(t, err)

	foreign, err := NewJWTService("another-secret", time.Hour).GenerateAccessToken(uuid.New(), "mallory")
	require.NoError(t, err)

	foreignExpired, err := NewJWTService("another-secret", time.Hour).WithClock(past).GenerateAccessToken(uuid.New(), "mallory")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:   uuid.New().String(),
		Username: "none",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:   uuid.New().String(),
		Username: "forever",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"expired", expired.Token, apperrors.ErrTokenExpired},
		{"wrong secret", foreign.Token, apperrors.ErrTokenInvalid},
		{"wrong secret and expired", foreignExpired.Token, apperrors.ErrTokenInvalid},
		{"alg none", unsigned, apperrors.ErrTokenInvalid},
		{"no expiry", noExpiry, apperrors.ErrTokenInvalid},
		{"garbage", "not.a.jwt", apperrors.ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
