package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notesapi/internal/cache"
	apperrors "notesapi/internal/errors"
	"notesapi/internal/events"
	"notesapi/internal/model"
	"notesapi/internal/repository"
)

// UserCachePrefix starts every cached user key.
const UserCachePrefix = "user:"

const (
	userCacheTTL = 5 * time.Minute

	minUsernameLength = 3
	minPasswordLength = 3
)

// UserService manages registered users.
type UserService interface {
	Register(ctx context.Context, username, name, password string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

type userService struct {
	repo      repository.UserRepository
	passwords *Passwords
	cache     *cache.Client
	publisher events.Publisher
	logger    *slog.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, passwords *Passwords, cache *cache.Client, publisher events.Publisher, logger *slog.Logger) UserService {
	return &userService{
		repo:      repo,
		passwords: passwords,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

func userCacheKey(id uuid.UUID) string {
	return UserCachePrefix + id.String()
}

// Register creates a user with a hashed password.
func (s *userService) Register(ctx context.Context, username, name, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if utf8.RuneCountInString(username) < minUsernameLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("username must be at least %d characters long", minUsernameLength))
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	}

	existing, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateUsername
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	if err := s.publisher.Publish(ctx, events.Event{
		Type:     events.TypeUserRegistered,
		UserID:   user.ID,
		Username: user.Username,
	}); err != nil {
		s.logger.WarnContext(ctx, "publish event failed", "type", events.TypeUserRegistered, "error", err)
	}
	return user, nil
}

// FindByUsername returns nil, nil when no user has that username.
func (s *userService) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// GetUser returns a user and their notes, served from cache when possible.
func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByIDWithNotes(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	_ = s.cache.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

// ListUsers returns every user with their notes.
func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListWithNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
