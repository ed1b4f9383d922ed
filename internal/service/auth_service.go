package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notesapi/internal/auth"
	"notesapi/internal/cache"
	apperrors "notesapi/internal/errors"
	"notesapi/internal/model"
	"notesapi/internal/repository"
)

// LoginResult is what a successful login or refresh hands back to the
// client. RefreshToken is empty when no refresh session could be stored.
type LoginResult struct {
	Token            string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, identity *auth.Identity) error
}

type authService struct {
	userRepo   repository.UserRepository
	passwords  *Passwords
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, passwords *Passwords, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, logger *slog.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		passwords:  passwords,
		jwtService: jwtService,
		tokenStore: tokenStore,
		logger:     logger,
	}
}

// Login checks credentials and issues a signed access token plus a refresh
// token for a new session. Unknown usernames and wrong passwords fail
// identically.
func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.passwords.BurnTime(password)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !s.passwords.Matches(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	result, err := s.issue(ctx, user, uuid.NewString())
	if err != nil {
		if result == nil {
			return nil, err
		}
		// the access token still works, the client just cannot refresh it
		if errors.Is(err, cache.ErrDisabled) {
			s.logger.DebugContext(ctx, "refresh sessions disabled", "user_id", user.ID)
		} else {
			s.logger.WarnContext(ctx, "store refresh session", "user_id", user.ID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return result, nil
}

// Refresh exchanges a refresh token for a new access token and a rotated
// refresh token. Each refresh token is accepted once; presenting a rotated
// one ends the session.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.tokenStore.GetRefreshSession(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load refresh session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	if session.TokenID != claims.ID || session.UserID != claims.UserID {
		s.logger.WarnContext(ctx, "refresh token reused, ending session", "user_id", claims.UserID)
		s.endSession(ctx, claims.SessionID)
		return nil, apperrors.ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.endSession(ctx, claims.SessionID)
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	result, err := s.issue(ctx, user, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh session: %w", err)
	}
	s.logger.InfoContext(ctx, "token refreshed", "user_id", user.ID)
	return result, nil
}

// Logout revokes the caller's token until it would have expired and ends
// its refresh session.
func (s *authService) Logout(ctx context.Context, identity *auth.Identity) error {
	if identity == nil || identity.TokenID == "" {
		return apperrors.ErrTokenInvalid
	}
	if err := s.tokenStore.RevokeToken(ctx, identity.TokenID, time.Until(identity.ExpiresAt)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if identity.SessionID != "" {
		if err := s.tokenStore.DeleteRefreshSession(ctx, identity.SessionID); err != nil {
			return fmt.Errorf("end refresh session: %w", err)
		}
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", identity.UserID)
	return nil
}

// issue signs a token pair for sessionID and stores the refresh token as the
// session's current one. When only the store fails the result is returned
// without a refresh token, together with the error.
func (s *authService) issue(ctx context.Context, user *model.User, sessionID string) (*LoginResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(user.ID, user.Username, sessionID)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	result := &LoginResult{
		Token:     pair.Access.Token,
		ExpiresAt: pair.Access.ExpiresAt,
		User:      user,
	}

	session := auth.RefreshSession{UserID: user.ID.String(), TokenID: pair.Refresh.ID}
	if err := s.tokenStore.StoreRefreshSession(ctx, sessionID, session, time.Until(pair.Refresh.ExpiresAt)); err != nil {
		return result, err
	}
	result.RefreshToken = pair.Refresh.Token
	result.RefreshExpiresAt = pair.Refresh.ExpiresAt
	return result, nil
}

func (s *authService) endSession(ctx context.Context, sessionID string) {
	if err := s.tokenStore.DeleteRefreshSession(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "end refresh session", "error", err)
	}
}
