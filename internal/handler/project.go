package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

// ProjectService is the subset of the project use cases the handler needs.
type ProjectService interface {
	List(ctx context.Context, ownerID string, f domain.ProjectFilter, p listing.Params) (listing.Page[domain.ProjectListItem], error)
	Get(ctx context.Context, ownerID, id string) (*domain.ProjectDetail, error)
	Create(ctx context.Context, ownerID string, p domain.Project) (*domain.ProjectListItem, error)
	Update(ctx context.Context, ownerID, id string, patch domain.ProjectPatch) (*domain.ProjectListItem, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// ProjectHandler serves /api/projects.
type ProjectHandler struct {
	projects ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var q projectListQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	page, err := h.projects.List(c.Request().Context(), userID, q.filter(), q.params(domain.ProjectSortFields))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/projects/:id.
func (h *ProjectHandler) Get(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	project, err := h.projects.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var req createProjectRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	project, err := h.projects.Create(c.Request().Context(), userID, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, project)
}

// Update handles PUT /api/projects/:id.
func (h *ProjectHandler) Update(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var req updateProjectRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	project, err := h.projects.Update(c.Request().Context(), userID, c.Param("id"), req.toPatch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// Delete handles DELETE /api/projects/:id. Tickets of the project go with it.
func (h *ProjectHandler) Delete(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	if err := h.projects.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Project deleted successfully"})
}
