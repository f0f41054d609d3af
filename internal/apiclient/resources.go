package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

// ListOptions are the query parameters of a list call. Zero values are not
// sent; filters a resource does not know are ignored by the server.
type ListOptions struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string

	Status    string
	Priority  string
	Type      string
	ClientID  string
	ProjectID string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("search", o.Search)
	set("sortBy", o.SortBy)
	set("sortOrder", o.SortOrder)
	set("status", o.Status)
	set("priority", o.Priority)
	set("type", o.Type)
	set("clientId", o.ClientID)
	set("projectId", o.ProjectID)
	return v
}

// ClientInput is the body of a client create or update. Empty fields are
// omitted, so an update only touches what is set.
type ClientInput struct {
	Name    string  `json:"name,omitempty"`
	Email   string  `json:"email,omitempty"`
	Company string  `json:"company,omitempty"`
	City    *string `json:"city,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type ProjectInput struct {
	Title       string               `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      domain.ProjectStatus `json:"status,omitempty"`
	Budget      *float64             `json:"budget,omitempty"`
	StartDate   *time.Time           `json:"startDate,omitempty"`
	EndDate     *time.Time           `json:"endDate,omitempty"`
	ClientID    string               `json:"clientId,omitempty"`
}

type TicketInput struct {
	Title       string                `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Status      domain.TicketStatus   `json:"status,omitempty"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
	Type        domain.TicketType     `json:"type,omitempty"`
	ProjectID   string                `json:"projectId,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Clients

func (c *Client) ListClients(ctx context.Context, opts ListOptions) (*listing.Page[domain.ClientListItem], error) {
	var page listing.Page[domain.ClientListItem]
	if err := c.do(ctx, http.MethodGet, "/api/clients", opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetClient(ctx context.Context, id string) (*domain.ClientDetail, error) {
	var out domain.ClientDetail
	if err := c.do(ctx, http.MethodGet, "/api/clients/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateClient(ctx context.Context, in ClientInput) (*domain.Client, error) {
	var out domain.Client
	if err := c.do(ctx, http.MethodPost, "/api/clients", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateClient(ctx context.Context, id string, in ClientInput) (*domain.Client, error) {
	var out domain.Client
	if err := c.do(ctx, http.MethodPut, "/api/clients/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClient removes the client together with its projects and tickets.
func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/clients/"+url.PathEscape(id), nil, nil, &messageResponse{})
}

// Projects

func (c *Client) ListProjects(ctx context.Context, opts ListOptions) (*listing.Page[domain.ProjectListItem], error) {
	var page listing.Page[domain.ProjectListItem]
	if err := c.do(ctx, http.MethodGet, "/api/projects", opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*domain.ProjectDetail, error) {
	var out domain.ProjectDetail
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*domain.ProjectListItem, error) {
	var out domain.ProjectListItem
	if err := c.do(ctx, http.MethodPost, "/api/projects", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, in ProjectInput) (*domain.ProjectListItem, error) {
	var out domain.ProjectListItem
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil, &messageResponse{})
}

// Tickets

func (c *Client) ListTickets(ctx context.Context, opts ListOptions) (*listing.Page[domain.TicketListItem], error) {
	var page listing.Page[domain.TicketListItem]
	if err := c.do(ctx, http.MethodGet, "/api/tickets", opts.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetTicket(ctx context.Context, id string) (*domain.TicketListItem, error) {
	var out domain.TicketListItem
	if err := c.do(ctx, http.MethodGet, "/api/tickets/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTicket(ctx context.Context, in TicketInput) (*domain.TicketListItem, error) {
	var out domain.TicketListItem
	if err := c.do(ctx, http.MethodPost, "/api/tickets", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTicket(ctx context.Context, id string, in TicketInput) (*domain.TicketListItem, error) {
	var out domain.TicketListItem
	if err := c.do(ctx, http.MethodPut, "/api/tickets/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tickets/"+url.PathEscape(id), nil, nil, &messageResponse{})
}

// TicketStats returns the per-status, per-priority and per-type counts.
func (c *Client) TicketStats(ctx context.Context) (*domain.TicketStats, error) {
	var out domain.TicketStats
	if err := c.do(ctx, http.MethodGet, "/api/tickets/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
