package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notesapi/internal/cache"
	apperrors "notesapi/internal/errors"
)

const revokedTokenKeyPrefix = "revoked_token:"

// RefreshSessionKeyPrefix starts every stored refresh session key.
const RefreshSessionKeyPrefix = "refresh_session:"

// RefreshSession records the one refresh token a session currently accepts.
type RefreshSession struct {
	UserID  string `json:"user_id"`
	TokenID string `json:"token_id"`
}

// TokenStoreInterface defines the interface for token revocation and
// refresh session storage.
type TokenStoreInterface interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	StoreRefreshSession(ctx context.Context, sessionID string, session RefreshSession, ttl time.Duration) error
	GetRefreshSession(ctx context.Context, sessionID string) (*RefreshSession, error)
	DeleteRefreshSession(ctx context.Context, sessionID string) error
}

// TokenStore keeps revoked token IDs and refresh sessions in Redis.
//
// Without Redis configured revocation is a no-op, no refresh session can be
// stored, and lookups find nothing. A configured Redis that fails is
// reported as apperrors.ErrUnavailable on writes.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// RevokeToken marks a token ID as revoked for ttl.
func (s *TokenStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return unavailable(s.cache.SetStrict(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl), false)
}

// IsRevoked checks if a token ID has been revoked.
func (s *TokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	data, err := s.cache.Get(ctx, revokedTokenKeyPrefix+tokenID)
	if err != nil {
		return false, nil // fail open like the cache itself
	}
	return data != nil, nil
}

// StoreRefreshSession saves the session's current refresh token ID for ttl,
// replacing any earlier one. It returns cache.ErrDisabled without Redis.
func (s *TokenStore) StoreRefreshSession(ctx context.Context, sessionID string, session RefreshSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return unavailable(s.cache.SetStrict(ctx, RefreshSessionKeyPrefix+sessionID, payload, ttl), true)
}

// GetRefreshSession loads a session. A missing session is (nil, nil).
func (s *TokenStore) GetRefreshSession(ctx context.Context, sessionID string) (*RefreshSession, error) {
	data, err := s.cache.GetStrict(ctx, RefreshSessionKeyPrefix+sessionID)
	if errors.Is(err, cache.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, false)
	}
	if data == nil {
		return nil, nil
	}
	var session RefreshSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, nil
	}
	return &session, nil
}

// DeleteRefreshSession ends a session so its refresh token stops working.
func (s *TokenStore) DeleteRefreshSession(ctx context.Context, sessionID string) error {
	return unavailable(s.cache.DeleteStrict(ctx, RefreshSessionKeyPrefix+sessionID), false)
}

// unavailable maps a strict cache error: ErrDisabled passes through when
// keepDisabled is set and is dropped otherwise, anything else is wrapped
// as apperrors.ErrUnavailable.
func unavailable(err error, keepDisabled bool) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cache.ErrDisabled):
		if keepDisabled {
			return err
		}
		return nil
	default:
		return fmt.Errorf("%w: redis: %v", apperrors.ErrUnavailable, err)
	}
}
