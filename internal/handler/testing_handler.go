package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"notesapi/internal/auth"
	"notesapi/internal/repository"
	"notesapi/internal/service"
)

// CachePurger removes cached keys by prefix. *cache.Client implements it.
type CachePurger interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// TestingHandler exposes state resets for end-to-end test suites. It is only
// routed when the service runs with APP_ENV=test.
type TestingHandler struct {
	repo  repository.MaintenanceRepository
	cache CachePurger
}

// NewTestingHandler creates a new testing handler. cache may be nil.
func NewTestingHandler(repo repository.MaintenanceRepository, cache CachePurger) *TestingHandler {
	return &TestingHandler{repo: repo, cache: cache}
}

// Reset godoc
// @Summary Delete all users and notes (test environment only)
// @Tags testing
// @Success 204
// @Failure 500 {object} errors.ErrorResponse
// @Router /testing/reset [post]
func (h *TestingHandler) Reset(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.repo.Reset(ctx); err != nil {
		return respondError(c, err)
	}
	if h.cache != nil {
		// cached users and their sessions would outlive the deleted rows
		for _, prefix := range []string{service.UserCachePrefix, auth.RefreshSessionKeyPrefix} {
			if _, err := h.cache.DeletePrefix(ctx, prefix); err != nil {
				return respondError(c, err)
			}
		}
	}
	return c.NoContent(http.StatusNoContent)
}
