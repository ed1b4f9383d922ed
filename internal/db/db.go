package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"notesapi/internal/model"
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 10
	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = 5 * time.Minute
)

// Open returns a connected GORM DB for the given driver ("mysql" or "sqlite").
func Open(ctx context.Context, driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB, driver)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return gormDB, nil
}

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(ctx context.Context, dsn string) (*gorm.DB, error) {
	return Open(ctx, "mysql", dsn)
}

// NewSQLite opens a SQLite database at path. ":memory:" gives a private
// in-memory database.
func NewSQLite(ctx context.Context, path string) (*gorm.DB, error) {
	return Open(ctx, "sqlite", path)
}

// Migrate creates or updates the schema for all models.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(&model.User{}, &model.Note{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// DropAll removes every table owned by the service.
func DropAll(gormDB *gorm.DB) error {
	for _, table := range []interface{}{&model.Note{}, &model.User{}} {
		if err := gormDB.Migrator().DropTable(table); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}

func configurePool(sqlDB *sql.DB, driver string) {
	// SQLite in-memory databases live and die with their connection.
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}
