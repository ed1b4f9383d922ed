package router

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"notesapi/internal/auth"
	"notesapi/internal/config"
	"notesapi/internal/handler"
	"notesapi/internal/logging"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	verifier *auth.Verifier,
	userHandler *handler.UserHandler,
	authHandler *handler.AuthHandler,
	noteHandler *handler.NoteHandler,
	testingHandler *handler.TestingHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/users", userHandler.Register)
	api.GET("/users", userHandler.ListUsers)
	api.GET("/users/:id", userHandler.GetUser)
	api.POST("/login", authHandler.Login)
	api.POST("/refresh", authHandler.Refresh)
	api.GET("/notes", noteHandler.List)
	api.GET("/notes/:id", noteHandler.Get)

	if cfg.IsTest() {
		api.POST("/testing/reset", testingHandler.Reset)
	}

	// Secured routes (require a bearer token)
	secured := api.Group("", auth.Middleware(verifier))

	secured.GET("/me", authHandler.Me)
	secured.POST("/logout", authHandler.Logout)
	secured.POST("/notes", noteHandler.Create)
	secured.PUT("/notes/:id", noteHandler.Update)
	secured.DELETE("/notes/:id", noteHandler.Delete)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
