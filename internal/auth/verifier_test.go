package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notesapi/internal/cache"
	apperrors "notesapi/internal/errors"
)

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenStore) StoreRefreshSession(ctx context.Context, sessionID string, session RefreshSession, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, session, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshSession(ctx context.Context, sessionID string) (*RefreshSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RefreshSession), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"bearer", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"lowercase scheme", "bearer abc.def.ghi", "abc.def.ghi", true},
		{"extra spaces", "  Bearer   abc.def.ghi  ", "abc.def.ghi", true},
		{"absent", "", "", false},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", false},
		{"scheme only", "Bearer", "", false},
		{"scheme and blank", "Bearer    ", "", false},
		{"token without scheme", "abc.def.ghi", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			got, ok := ExtractToken(h)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	jwtService := NewJWTService(testSecret, time.Hour)
	userID := uuid.New()

	valid, err := jwtService.GenerateAccessToken(userID, "kcmaxwell")
	require.NoError(t, err)

	expired, err := jwtService.WithClock(func() time.Time { return time.Now().Add(-3 * time.Hour) }).
		GenerateAccessToken(userID, "kcmaxwell")
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "ghost",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	t.Run("valid token resolves identity", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("IsRevoked", mock.Anything, valid.ID).Return(false, nil)

		identity, err := NewVerifier(jwtService, store).Verify(ctx, valid.Token)
		require.NoError(t, err)
		assert.Equal(t, userID, identity.UserID)
		assert.Equal(t, "kcmaxwell", identity.Username)
		assert.Equal(t, valid.ID, identity.TokenID)
		store.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := NewVerifier(jwtService, nil).Verify(ctx, "")
		assert.ErrorIs(t, err, apperrors.ErrTokenMissing)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := NewVerifier(jwtService, nil).Verify(ctx, expired.Token)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("payload without user id", func(t *testing.T) {
		_, err := NewVerifier(jwtService, nil).Verify(ctx, noUser)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	})

	t.Run("revoked token", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("IsRevoked", mock.Anything, valid.ID).Return(true, nil)

		_, err := NewVerifier(jwtService, store).Verify(ctx, valid.Token)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		store.AssertExpectations(t)
	})

	t.Run("refresh token is not a bearer token", func(t *testing.T) {
		pair, err := jwtService.GenerateTokenPair(userID, "kcmaxwell", "session-1")
		require.NoError(t, err)

		_, err = NewVerifier(jwtService, nil).Verify(ctx, pair.Refresh.Token)
		assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

		identity, err := NewVerifier(jwtService, nil).Verify(ctx, pair.Access.Token)
		require.NoError(t, err)
		assert.Equal(t, "session-1", identity.SessionID)
	})

	t.Run("revocation lookup failure is ignored", func(t *testing.T) {
		store := new(MockTokenStore)
		store.On("IsRevoked", mock.Anything, valid.ID).Return(false, assert.AnError)

		identity, err := NewVerifier(jwtService, store).Verify(ctx, valid.Token)
		require.NoError(t, err)
		assert.Equal(t, userID, identity.UserID)
	})
}

func TestTokenStore_NilCacheNeverRevokes(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(nil)

	require.NoError(t, store.RevokeToken(ctx, "jti", time.Minute))
	revoked, err := store.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	err = store.StoreRefreshSession(ctx, "sid", RefreshSession{UserID: "u", TokenID: "jti"}, time.Minute)
	assert.ErrorIs(t, err, cache.ErrDisabled)
	session, err := store.GetRefreshSession(ctx, "sid")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.NoError(t, store.DeleteRefreshSession(ctx, "sid"))
}

func TestTokenStore_UnreachableRedisFailsWrites(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := cache.New("127.0.0.1:1", "", 0)
	defer client.Close()
	store := NewTokenStore(client)

	assert.ErrorIs(t, store.RevokeToken(ctx, "jti", time.Minute), apperrors.ErrUnavailable)
	assert.ErrorIs(t, store.StoreRefreshSession(ctx, "sid", RefreshSession{UserID: "u", TokenID: "jti"}, time.Minute), apperrors.ErrUnavailable)
	_, err := store.GetRefreshSession(ctx, "sid")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.ErrorIs(t, store.DeleteRefreshSession(ctx, "sid"), apperrors.ErrUnavailable)

	// reads used by every authenticated request still fail open
	revoked, err := store.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}
