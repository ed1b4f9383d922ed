package repository

import (
	"context"

	"gorm.io/gorm"

	"notesapi/internal/model"
)

// MaintenanceRepository wipes state between end-to-end test runs.
type MaintenanceRepository interface {
	Reset(ctx context.Context) error
}

type maintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository creates a new maintenance repository.
func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

// Reset deletes every note and user.
func (r *maintenanceRepository) Reset(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&model.Note{}).Error; err != nil {
			return err
		}
		return all.Delete(&model.User{}).Error
	})
}
