package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

// TicketService is the subset of the ticket use cases the handler needs.
type TicketService interface {
	List(ctx context.Context, ownerID string, f domain.TicketFilter, p listing.Params) (listing.Page[domain.TicketListItem], error)
	Get(ctx context.Context, ownerID, id string) (*domain.TicketListItem, error)
	Create(ctx context.Context, ownerID string, t domain.Ticket) (*domain.TicketListItem, error)
	Update(ctx context.Context, ownerID, id string, patch domain.TicketPatch) (*domain.TicketListItem, error)
	Delete(ctx context.Context, ownerID, id string) error
	Stats(ctx context.Context, ownerID string) (*domain.TicketStats, error)
}

// TicketHandler serves /api/tickets.
type TicketHandler struct {
	tickets TicketService
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(tickets TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// List handles GET /api/tickets.
func (h *TicketHandler) List(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var q ticketListQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}

	page, err := h.tickets.List(c.Request().Context(), userID, q.filter(), q.params(domain.TicketSortFields))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Stats handles GET /api/tickets/stats.
func (h *TicketHandler) Stats(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	stats, err := h.tickets.Stats(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Get handles GET /api/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ticket)
}

// Create handles POST /api/tickets.
func (h *TicketHandler) Create(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var req createTicketRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.Create(c.Request().Context(), userID, req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ticket)
}

// Update handles PUT /api/tickets/:id.
func (h *TicketHandler) Update(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	var req updateTicketRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.Update(c.Request().Context(), userID, c.Param("id"), req.toPatch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ticket)
}

// Delete handles DELETE /api/tickets/:id.
func (h *TicketHandler) Delete(c echo.Context) error {
	userID, err := mustUserID(c)
	if err != nil {
		return err
	}

	if err := h.tickets.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Ticket deleted successfully"})
}
