package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"

	"notesapi/docs"
	"notesapi/internal/auth"
	"notesapi/internal/cache"
	"notesapi/internal/config"
	"notesapi/internal/db"
	"notesapi/internal/events"
	"notesapi/internal/handler"
	"notesapi/internal/logging"
	"notesapi/internal/repository"
	"notesapi/internal/router"
	"notesapi/internal/service"
)

// @title Notes API
// @version 1.0
// @description Notes API with user registration, JWT login and owner-only note edits.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.MySQLDSN
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	gormDB, err := db.Open(ctx, cfg.DBDriver, dsn)
	if err != nil {
		return err
	}

	if os.Getenv("RESET_DB") == "true" {
		logger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.DropAll(gormDB); err != nil {
			logger.Warn("drop tables", "error", err)
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, running without cache and revocation", "error", err)
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	passwords, err := service.NewPasswords(cfg.BcryptCost)
	if err != nil {
		return err
	}

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	noteRepo := repository.NewNoteRepository(gormDB)
	maintenanceRepo := repository.NewMaintenanceRepository(gormDB)

	// Auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL).WithRefreshTTL(cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)
	verifier := auth.NewVerifier(jwtService, tokenStore)

	// Services
	userService := service.NewUserService(userRepo, passwords, cacheClient, publisher, logger)
	authService := service.NewAuthService(userRepo, passwords, jwtService, tokenStore, logger)
	noteService := service.NewNoteService(noteRepo, cacheClient, publisher, logger, cfg.NoteMinLength)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(
		e,
		cfg,
		logger,
		verifier,
		handler.NewUserHandler(userService),
		handler.NewAuthHandler(authService),
		handler.NewNoteHandler(noteService),
		handler.NewTestingHandler(maintenanceRepo, cacheClient),
	)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
