package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

type normalizer interface {
	normalize()
}

// bindBody decodes the JSON body, trims string fields and validates.
func bindBody(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, req); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput)
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return c.Validate(req)
}

// bindQuery decodes and validates query parameters.
func bindQuery(c echo.Context, req any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, req); err != nil {
		return fmt.Errorf("%w: malformed query parameters", domain.ErrInvalidInput)
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return c.Validate(req)
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// ListQuery holds the parameters shared by every list endpoint. Page and
// limit stay strings: malformed values fall back to defaults, never 400.
type ListQuery struct {
	Page      string `query:"page"`
	Limit     string `query:"limit"`
	Search    string `query:"search"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder"`
}

func (q ListQuery) params(sortable map[string]string) listing.Params {
	return listing.Params{
		Page:   listing.ParsePage(q.Page, q.Limit),
		Search: q.Search,
		Sort:   listing.ParseSort(q.SortBy, q.SortOrder, sortable),
	}
}

// optional returns nil for an empty query value.
func optional[T ~string](v string) *T {
	if v == "" {
		return nil
	}
	t := T(v)
	return &t
}

// dateValue converts a validated isodate string.
func dateValue(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, ok := parseDate(*s)
	if !ok {
		return nil
	}
	return &t
}

// Clients

type clientListQuery struct {
	ListQuery
}

type createClientRequest struct {
	Name    string  `json:"name" validate:"required,min=2"`
	Email   string  `json:"email" validate:"required,email"`
	Company string  `json:"company" validate:"required,min=2"`
	City    *string `json:"city"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (r *createClientRequest) normalize() {
	trim(&r.Name)
	trim(&r.Email)
	trim(&r.Company)
	trim(r.City)
	trim(r.Phone)
	trim(r.Address)
}

func (r *createClientRequest) toDomain() domain.Client {
	return domain.Client{
		Name:    r.Name,
		Email:   r.Email,
		Company: r.Company,
		City:    r.City,
		Phone:   r.Phone,
		Address: r.Address,
	}
}

type updateClientRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=2"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Company *string `json:"company" validate:"omitempty,min=2"`
	City    *string `json:"city"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (r *updateClientRequest) normalize() {
	for _, s := range []*string{r.Name, r.Email, r.Company, r.City, r.Phone, r.Address} {
		trim(s)
	}
}

func (r *updateClientRequest) toPatch() domain.ClientPatch {
	return domain.ClientPatch{
		Name:    r.Name,
		Email:   r.Email,
		Company: r.Company,
		City:    r.City,
		Phone:   r.Phone,
		Address: r.Address,
	}
}

// Projects

type projectListQuery struct {
	ListQuery
	Status   string `query:"status" validate:"omitempty,oneof=ACTIVE COMPLETED ON_HOLD CANCELLED"`
	ClientID string `query:"clientId" validate:"omitempty,uuid"`
}

func (q *projectListQuery) filter() domain.ProjectFilter {
	return domain.ProjectFilter{
		Status:   optional[domain.ProjectStatus](q.Status),
		ClientID: optional[string](q.ClientID),
	}
}

type createProjectRequest struct {
	Title       string   `json:"title" validate:"required,min=2"`
	Description *string  `json:"description"`
	Status      *string  `json:"status" validate:"omitempty,oneof=ACTIVE COMPLETED ON_HOLD CANCELLED"`
	Budget      *float64 `json:"budget" validate:"omitempty,gte=0"`
	StartDate   *string  `json:"startDate" validate:"omitempty,isodate"`
	EndDate     *string  `json:"endDate" validate:"omitempty,isodate"`
	ClientID    string   `json:"clientId" validate:"required"`
}

func (r *createProjectRequest) normalize() {
	trim(&r.Title)
	trim(r.Description)
	trim(&r.ClientID)
}

func (r *createProjectRequest) toDomain() domain.Project {
	p := domain.Project{
		Title:       r.Title,
		Description: r.Description,
		Budget:      r.Budget,
		StartDate:   dateValue(r.StartDate),
		EndDate:     dateValue(r.EndDate),
		ClientID:    r.ClientID,
	}
	if r.Status != nil {
		p.Status = domain.ProjectStatus(*r.Status)
	}
	return p
}

type updateProjectRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=2"`
	Description *string  `json:"description"`
	Status      *string  `json:"status" validate:"omitempty,oneof=ACTIVE COMPLETED ON_HOLD CANCELLED"`
	Budget      *float64 `json:"budget" validate:"omitempty,gte=0"`
	StartDate   *string  `json:"startDate" validate:"omitempty,isodate"`
	EndDate     *string  `json:"endDate" validate:"omitempty,isodate"`
	ClientID    *string  `json:"clientId" validate:"omitempty,min=1"`
}

func (r *updateProjectRequest) normalize() {
	trim(r.Title)
	trim(r.Description)
	trim(r.ClientID)
}

func (r *updateProjectRequest) toPatch() domain.ProjectPatch {
	var status *domain.ProjectStatus
	if r.Status != nil {
		s := domain.ProjectStatus(*r.Status)
		status = &s
	}
	return domain.ProjectPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      status,
		Budget:      r.Budget,
		StartDate:   dateValue(r.StartDate),
		EndDate:     dateValue(r.EndDate),
		ClientID:    r.ClientID,
	}
}

// Tickets

type ticketListQuery struct {
	ListQuery
	Status    string `query:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Priority  string `query:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Type      string `query:"type" validate:"omitempty,oneof=BUG FEATURE TASK SUPPORT"`
	ProjectID string `query:"projectId" validate:"omitempty,uuid"`
}

func (q *ticketListQuery) filter() domain.TicketFilter {
	return domain.TicketFilter{
		Status:    optional[domain.TicketStatus](q.Status),
		Priority:  optional[domain.TicketPriority](q.Priority),
		Type:      optional[domain.TicketType](q.Type),
		ProjectID: optional[string](q.ProjectID),
	}
}

type createTicketRequest struct {
	Title       string  `json:"title" validate:"required,min=2"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Type        *string `json:"type" validate:"omitempty,oneof=BUG FEATURE TASK SUPPORT"`
	ProjectID   string  `json:"projectId" validate:"required"`
}

func (r *createTicketRequest) normalize() {
	trim(&r.Title)
	trim(r.Description)
	trim(&r.ProjectID)
}

func (r *createTicketRequest) toDomain() domain.Ticket {
	t := domain.Ticket{
		Title:       r.Title,
		Description: r.Description,
		ProjectID:   r.ProjectID,
	}
	if r.Status != nil {
		t.Status = domain.TicketStatus(*r.Status)
	}
	if r.Priority != nil {
		t.Priority = domain.TicketPriority(*r.Priority)
	}
	if r.Type != nil {
		t.Type = domain.TicketType(*r.Type)
	}
	return t
}

type updateTicketRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS RESOLVED CLOSED"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Type        *string `json:"type" validate:"omitempty,oneof=BUG FEATURE TASK SUPPORT"`
	ProjectID   *string `json:"projectId" validate:"omitempty,min=1"`
}

func (r *updateTicketRequest) normalize() {
	trim(r.Title)
	trim(r.Description)
	trim(r.ProjectID)
}

func (r *updateTicketRequest) toPatch() domain.TicketPatch {
	p := domain.TicketPatch{
		Title:       r.Title,
		Description: r.Description,
		ProjectID:   r.ProjectID,
	}
	if r.Status != nil {
		p.Status = optional[domain.TicketStatus](*r.Status)
	}
	if r.Priority != nil {
		p.Priority = optional[domain.TicketPriority](*r.Priority)
	}
	if r.Type != nil {
		p.Type = optional[domain.TicketType](*r.Type)
	}
	return p
}

// Auth

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=2"`
}

func (r *registerRequest) normalize() {
	trim(&r.Email)
	trim(&r.Name)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	trim(&r.Email)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
