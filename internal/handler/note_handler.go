package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"notesapi/internal/auth"
	"notesapi/internal/errors"
	"notesapi/internal/model"
	"notesapi/internal/service"
)

// NoteHandler handles note endpoints.
type NoteHandler struct {
	noteService service.NoteService
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(noteService service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// NoteRequest is the body for creating or replacing a note.
type NoteRequest struct {
	Content   string `json:"content" validate:"required"`
	Important bool   `json:"important"`
}

func parseNoteID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid note ID",
			Code:  "INVALID_ID",
		})
	}
	return id, nil
}

// List godoc
// @Summary List all notes
// @Tags notes
// @Produce json
// @Success 200 {array} model.NoteView
// @Failure 500 {object} errors.ErrorResponse
// @Router /notes [get]
func (h *NoteHandler) List(c echo.Context) error {
	notes, err := h.noteService.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.Views(notes))
}

// Get godoc
// @Summary Get a note
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} model.NoteView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c echo.Context) error {
	id, err := parseNoteID(c)
	if err != nil {
		return err
	}
	note, err := h.noteService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, note.View())
}

// Create godoc
// @Summary Create a note owned by the caller
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body NoteRequest true "Note"
// @Success 201 {object} model.NoteView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /notes [post]
func (h *NoteHandler) Create(c echo.Context) error {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return respondError(c, errors.ErrTokenMissing)
	}

	var req NoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	note, err := h.noteService.Create(c.Request().Context(), identity, req.Content, req.Important)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, note.View())
}

// Update godoc
// @Summary Replace a note's content and importance
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Param request body NoteRequest true "Note"
// @Success 200 {object} model.NoteView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c echo.Context) error {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return respondError(c, errors.ErrTokenMissing)
	}
	id, err := parseNoteID(c)
	if err != nil {
		return err
	}

	// content rules are checked after existence and ownership
	var req NoteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	note, err := h.noteService.Update(c.Request().Context(), identity, id, service.NoteUpdate{
		Content:   req.Content,
		Important: req.Important,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, note.View())
}

// Delete godoc
// @Summary Delete a note
// @Tags notes
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c echo.Context) error {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return respondError(c, errors.ErrTokenMissing)
	}
	id, err := parseNoteID(c)
	if err != nil {
		return err
	}

	if err := h.noteService.Delete(c.Request().Context(), identity, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
