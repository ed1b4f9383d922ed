package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note is a piece of content owned by exactly one user.
type Note struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Important bool      `json:"important" gorm:"default:false"`
	UserID    uuid.UUID `json:"-" gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate sets UUID before creating the record.
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NoteView is the JSON shape of a note returned by the API.
type NoteView struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Important bool      `json:"important"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *Owner    `json:"user,omitempty"`
}

// View renders the note with its owner summary, if loaded.
func (n *Note) View() NoteView {
	return NoteView{
		ID:        n.ID,
		Content:   n.Content,
		Important: n.Important,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		User:      n.User.AsOwner(),
	}
}

// Views renders a slice of notes.
func Views(notes []Note) []NoteView {
	out := make([]NoteView, 0, len(notes))
	for i := range notes {
		out = append(out, notes[i].View())
	}
	return out
}
