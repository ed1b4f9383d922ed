package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "notesapi/internal/errors"
)

const (
	// DefaultTokenExpiry is used when no TTL is configured.
	DefaultTokenExpiry = time.Hour
	// DefaultRefreshExpiry is used when no refresh TTL is configured.
	DefaultRefreshExpiry = 7 * 24 * time.Hour
)

// Token types carried in the typ claim. Tokens without one are access tokens.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents JWT claims.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Type      string `json:"typ,omitempty"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c.Type == TokenTypeRefresh
}

// IssuedToken is a freshly signed access token.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenPair is an access token and the refresh token of the same session.
type TokenPair struct {
	Access  *IssuedToken
	Refresh *IssuedToken
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and token lifetime.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}
	return &JWTService{
		secret:     []byte(secret),
		ttl:        ttl,
		refreshTTL: DefaultRefreshExpiry,
		now:        time.Now,
	}
}

// WithRefreshTTL returns a copy of the service whose refresh tokens live for ttl.
func (s *JWTService) WithRefreshTTL(ttl time.Duration) *JWTService {
	cp := *s
	if ttl > 0 {
		cp.refreshTTL = ttl
	}
	return &cp
}

// WithClock returns a copy of the service that stamps tokens using now.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	cp := *s
	cp.now = now
	return &cp
}

// TTL reports how long issued access tokens stay valid.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// RefreshTTL reports how long issued refresh tokens stay valid.
func (s *JWTService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// GenerateAccessToken signs a token carrying the user's id and username.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, username string) (*IssuedToken, error) {
	return s.sign(userID, username, TokenTypeAccess, "", s.ttl)
}

// GenerateTokenPair signs an access token and a refresh token that share
// sessionID.
func (s *JWTService) GenerateTokenPair(userID uuid.UUID, username, sessionID string) (*TokenPair, error) {
	access, err := s.sign(userID, username, TokenTypeAccess, sessionID, s.ttl)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, username, TokenTypeRefresh, sessionID, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *JWTService) sign(userID uuid.UUID, username, tokenType, sessionID string, ttl time.Duration) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	tokenID := uuid.New().String()

	claims := &Claims{
		UserID:    userID.String(),
		Username:  username,
		Type:      tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{Token: signed, ID: tokenID, ExpiresAt: expiresAt}, nil
}

// ValidateToken checks signature and expiry and returns the claims.
// Errors are apperrors.ErrTokenExpired or apperrors.ErrTokenInvalid.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if onlyExpired(err) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrTokenInvalid
	}
	if claims.ExpiresAt == nil {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}

// ValidateRefreshToken validates a refresh token. Every failure, including
// an access token presented in its place, is apperrors.ErrInvalidRefreshToken.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil || !claims.IsRefresh() || claims.SessionID == "" {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	return claims, nil
}

// onlyExpired is true when expiry is the sole failure, so a tampered
// expired token still reads as invalid.
func onlyExpired(err error) bool {
	var vErr *jwt.ValidationError
	if !errors.As(err, &vErr) {
		return false
	}
	return vErr.Errors&jwt.ValidationErrorExpired != 0 &&
		vErr.Errors&^jwt.ValidationErrorExpired == 0
}
