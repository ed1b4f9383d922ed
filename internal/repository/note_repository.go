package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"notesapi/internal/model"
)

// NoteRepository defines note persistence operations.
type NoteRepository interface {
	// CreateForOwner links the note to ownerID and persists it. Returns
	// gorm.ErrRecordNotFound if the owner does not exist.
	CreateForOwner(ctx context.Context, ownerID uuid.UUID, note *model.Note) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Note, error)
	List(ctx context.Context) ([]model.Note, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo NoteRepository) error) error
}

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository creates a new note repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

// CreateForOwner creates the note inside a transaction after loading its owner.
func (r *noteRepository) CreateForOwner(ctx context.Context, ownerID uuid.UUID, note *model.Note) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner model.User
		if err := tx.Where("id = ?", ownerID).First(&owner).Error; err != nil {
			return err
		}

		note.UserID = owner.ID
		note.User = nil
		if err := tx.Create(note).Error; err != nil {
			return err
		}
		note.User = &owner
		return nil
	})
}

// FindByID finds a note by ID with its owner loaded.
func (r *noteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	var note model.Note
	if err := r.db.WithContext(ctx).Preload("User").
		Where("id = ?", id).First(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// List returns every note, oldest first, with owners loaded.
func (r *noteRepository) List(ctx context.Context) ([]model.Note, error) {
	var notes []model.Note
	if err := r.db.WithContext(ctx).Preload("User").
		Order("created_at asc").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// Update writes the note's columns without touching its owner.
func (r *noteRepository) Update(ctx context.Context, note *model.Note) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(note).Error
}

// Delete removes a note. Deleting a missing note is not an error.
func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Note{}).Error
}

// WithTransaction executes a function within a database transaction.
func (r *noteRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo NoteRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &noteRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
