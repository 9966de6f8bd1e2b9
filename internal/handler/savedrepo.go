package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/repoboard/internal/domain"
	"github.com/sumire/repoboard/internal/service"
)

// SavedRepoHandler handles the workspace endpoints.
type SavedRepoHandler struct {
	repos *service.SavedRepoService
}

// NewSavedRepoHandler creates a new SavedRepoHandler.
func NewSavedRepoHandler(repos *service.SavedRepoService) *SavedRepoHandler {
	return &SavedRepoHandler{repos: repos}
}

type saveRepoRequest struct {
	FullName string `json:"full_name" validate:"required"`
}

// Save bookmarks one repository from the connection snapshot.
func (h *SavedRepoHandler) Save(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req saveRepoRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	saved, err := h.repos.Save(c.Request().Context(), userID, req.FullName)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, saved)
}

type saveBatchRequest struct {
	FullNames []string `json:"full_names" validate:"required,min=1,dive,required"`
}

// SaveBatch bookmarks several repositories at once.
func (h *SavedRepoHandler) SaveBatch(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var req saveBatchRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	saved, err := h.repos.SaveBatch(c.Request().Context(), userID, req.FullNames)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, saved)
}

// List returns the workspace, optionally filtered by language or status.
func (h *SavedRepoHandler) List(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	filter := domain.RepoFilter{
		Language: c.QueryParam("language"),
		Status:   domain.RepoStatus(c.QueryParam("status")),
	}
	repos, err := h.repos.List(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, repos)
}

// Get returns one saved repository by full name ("owner/name").
func (h *SavedRepoHandler) Get(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	fullName := c.Param("owner") + "/" + c.Param("repo")
	repo, err := h.repos.Get(c.Request().Context(), userID, fullName)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, repo)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active archived deleted"`
}

// UpdateStatus moves a saved repository between workspace states.
func (h *SavedRepoHandler) UpdateStatus(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := repoID(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.repos.UpdateStatus(c.Request().Context(), userID, id, domain.RepoStatus(req.Status)); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]string{"status": req.Status})
}

type updateMetadataRequest struct {
	Category *string `json:"category,omitempty" validate:"omitempty,max=100"`
	Priority *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateMetadata replaces the editable overlay of a saved repository.
func (h *SavedRepoHandler) UpdateMetadata(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := repoID(c)
	if err != nil {
		return err
	}

	var req updateMetadataRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	meta := domain.RepoMetadata{
		Category: req.Category,
		Priority: req.Priority,
		Notes:    req.Notes,
	}
	if err := h.repos.UpdateMetadata(c.Request().Context(), userID, id, meta); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete removes a saved repository from the workspace.
func (h *SavedRepoHandler) Delete(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	id, err := repoID(c)
	if err != nil {
		return err
	}

	if err := h.repos.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats summarizes the workspace.
func (h *SavedRepoHandler) Stats(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	stats, err := h.repos.Stats(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, stats)
}

func repoID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}
