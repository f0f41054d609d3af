package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

// ClientService is the subset of the client use cases the handler needs.
type ClientService interface {
	List(ctx context.Context, ownerID string, f domain.ClientFilter, p listing.Params) (listing.Page[domain.ClientListItem], error)
	Get(ctx context.Context, ownerID, id string) (*domain.ClientDetail, error)
	Create(ctx context.Context, ownerID string, c domain.Client) (*domain.Client, error)
	Update(ctx context.Context, ownerID, id string, patch domain.ClientPatch) (*domain.Client, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// ClientHandler serves /api/clients.
type ClientHandler struct {
	clients ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clients ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// List handles GET /api/clients.
func (h *ClientHandler) List(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var q clientListQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	params := q.params(domain.ClientSortFields)
	page, err := h.clients.List(c.Request().Context(), userID, domain.ClientFilter{}, params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/clients/:id.
func (h *ClientHandler) Get(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	client, err := h.clients.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Create handles POST /api/clients.
func (h *ClientHandler) Create(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var req createClientRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	client, err := h.clients.Create(c.Request().Context(), userID, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, client)
}

// Update handles PUT /api/clients/:id.
func (h *ClientHandler) Update(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var req updateClientRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	client, err := h.clients.Update(c.Request().Context(), userID, c.Param("id"), req.toPatch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Delete handles DELETE /api/clients/:id.
func (h *ClientHandler) Delete(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	if err := h.clients.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Client deleted successfully"})
}
