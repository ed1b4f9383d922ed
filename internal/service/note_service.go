package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"notesapi/internal/auth"
	"notesapi/internal/cache"
	apperrors "notesapi/internal/errors"
	"notesapi/internal/events"
	"notesapi/internal/model"
	"notesapi/internal/repository"
)

// DefaultNoteMinLength is used when no minimum is configured.
const DefaultNoteMinLength = 5

// NoteUpdate replaces both mutable fields of a note.
type NoteUpdate struct {
	Content   string
	Important bool
}

// NoteService handles note operations. Reads are public; writes require
// an identity and mutations are limited to the note's owner.
type NoteService interface {
	Create(ctx context.Context, identity *auth.Identity, content string, important bool) (*model.Note, error)
	List(ctx context.Context) ([]model.Note, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Note, error)
	Update(ctx context.Context, identity *auth.Identity, id uuid.UUID, update NoteUpdate) (*model.Note, error)
	Delete(ctx context.Context, identity *auth.Identity, id uuid.UUID) error
}

type noteService struct {
	repo      repository.NoteRepository
	cache     *cache.Client
	publisher events.Publisher
	logger    *slog.Logger
	minLength int
}

// NewNoteService creates a new note service.
func NewNoteService(repo repository.NoteRepository, cache *cache.Client, publisher events.Publisher, logger *slog.Logger, minLength int) NoteService {
	if minLength < 1 {
		minLength = 1
	}
	return &noteService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		minLength: minLength,
	}
}

func (s *noteService) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperrors.NewValidationError("content is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) < s.minLength {
		return apperrors.NewValidationError(fmt.Sprintf("content must be at least %d characters long", s.minLength))
	}
	return nil
}

// Create stores a note owned by the caller.
func (s *noteService) Create(ctx context.Context, identity *auth.Identity, content string, important bool) (*model.Note, error) {
	if identity == nil {
		return nil, apperrors.ErrTokenMissing
	}
	if err := s.validateContent(content); err != nil {
		return nil, err
	}

	note := &model.Note{
		Content:   content,
		Important: important,
	}
	if err := s.repo.CreateForOwner(ctx, identity.UserID, note); err != nil {
		// token was valid but its user is gone
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.afterWrite(ctx, events.TypeNoteCreated, identity, note)
	return note, nil
}

// List returns all notes, oldest first.
func (s *noteService) List(ctx context.Context) ([]model.Note, error) {
	notes, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Get returns a single note.
func (s *noteService) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// Update replaces content and importance of a note the caller owns.
func (s *noteService) Update(ctx context.Context, identity *auth.Identity, id uuid.UUID, update NoteUpdate) (*model.Note, error) {
	if identity == nil {
		return nil, apperrors.ErrTokenMissing
	}

	var updated *model.Note
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.NoteRepository) error {
		note, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("find note: %w", err)
		}
		if note.UserID != identity.UserID {
			return apperrors.ErrForbidden
		}
		if err := s.validateContent(update.Content); err != nil {
			return err
		}

		note.Content = update.Content
		note.Important = update.Important
		if err := repo.Update(ctx, note); err != nil {
			return fmt.Errorf("update note: %w", err)
		}
		updated = note
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.TypeNoteUpdated, identity, updated)
	return updated, nil
}

// Delete removes a note the caller owns. A note that does not exist is
// treated as already deleted.
func (s *noteService) Delete(ctx context.Context, identity *auth.Identity, id uuid.UUID) error {
	if identity == nil {
		return apperrors.ErrTokenMissing
	}

	var deleted *model.Note
	err := s.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.NoteRepository) error {
		note, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("find note: %w", err)
		}
		if note.UserID != identity.UserID {
			return apperrors.ErrForbidden
		}
		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		deleted = note
		return nil
	})
	if err != nil {
		return err
	}

	if deleted != nil {
		s.afterWrite(ctx, events.TypeNoteDeleted, identity, deleted)
	}
	return nil
}

// afterWrite drops the owner's cached profile and publishes the event.
// Neither failure undoes the write.
func (s *noteService) afterWrite(ctx context.Context, eventType string, identity *auth.Identity, note *model.Note) {
	_ = s.cache.Delete(ctx, userCacheKey(identity.UserID))

	important := note.Important
	if err := s.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		UserID:    identity.UserID,
		Username:  identity.Username,
		NoteID:    note.ID,
		Important: &important,
	}); err != nil {
		s.logger.WarnContext(ctx, "publish event failed", "type", eventType, "note_id", note.ID, "error", err)
	}
}
