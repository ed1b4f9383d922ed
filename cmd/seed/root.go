package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"notesapi/internal/cache"
	"notesapi/internal/config"
	"notesapi/internal/db"
	"notesapi/internal/events"
	"notesapi/internal/repository"
	"notesapi/internal/service"
)

func newRootCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var (
		file  string
		reset bool
	)
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Load sample users and notes into the database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixture := defaultFixture()
			if file != "" {
				loaded, err := loadFixture(file)
				if err != nil {
					return err
				}
				fixture = loaded
			}

			ctx := cmd.Context()
			dsn := cfg.MySQLDSN
			if cfg.DBDriver == "sqlite" {
				dsn = cfg.SQLitePath
			}
			gormDB, err := db.Open(ctx, cfg.DBDriver, dsn)
			if err != nil {
				return err
			}
			if err := db.Migrate(gormDB); err != nil {
				return err
			}
			if reset {
				if err := repository.NewMaintenanceRepository(gormDB).Reset(ctx); err != nil {
					return err
				}
				logger.Info("existing users and notes removed")
			}

			passwords, err := service.NewPasswords(cfg.BcryptCost)
			if err != nil {
				return err
			}
			cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
			defer cacheClient.Close()
			publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
			defer publisher.Close()

			s := &seeder{
				users:  service.NewUserService(repository.NewUserRepository(gormDB), passwords, cacheClient, publisher, logger),
				notes:  service.NewNoteService(repository.NewNoteRepository(gormDB), cacheClient, publisher, logger, cfg.NoteMinLength),
				logger: logger,
			}
			result, err := s.run(ctx, fixture)
			if err != nil {
				return err
			}
			logger.Info("seed completed",
				"users_created", result.UsersCreated,
				"users_existing", result.UsersExisting,
				"notes_created", result.NotesCreated,
			)
			return nil
		},
	}
	root.Flags().StringVar(&file, "file", "", "JSON fixture with users and their notes")
	root.Flags().BoolVar(&reset, "reset", false, "Delete all users and notes before seeding")
	return root
}

func loadFixture(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var fixture Fixture
	if err := json.Unmarshal(raw, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return fixture, nil
}
