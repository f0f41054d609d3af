package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sumire/consultdesk/internal/cache"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

// ProjectService handles project use cases.
type ProjectService struct {
	projects ProjectStore
	clients  ClientStore
	tickets  TicketStore
	stats    cache.StatsCache
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects ProjectStore, clients ClientStore, tickets TicketStore, stats cache.StatsCache) *ProjectService {
	return &ProjectService{projects: projects, clients: clients, tickets: tickets, stats: stats}
}

// List returns one page of the owner's projects.
func (s *ProjectService) List(ctx context.Context, ownerID string, f domain.ProjectFilter, p listing.Params) (listing.Page[domain.ProjectListItem], error) {
	items, total, err := s.projects.List(ctx, ownerID, f, p)
	if err != nil {
		return listing.Page[domain.ProjectListItem]{}, err
	}
	return listing.NewPage(items, total, p.Page), nil
}

// Get returns the project with its client summary and tickets.
func (s *ProjectService) Get(ctx context.Context, ownerID, id string) (*domain.ProjectDetail, error) {
	item, err := loadOwned(ctx, s.projects.FindOwnedItem, "Project", id, ownerID)
	if err != nil {
		return nil, err
	}

	tickets, err := s.tickets.ListByProject(ctx, item.ID, ownerID)
	if err != nil {
		return nil, err
	}
	return &domain.ProjectDetail{ProjectListItem: *item, Tickets: tickets}, nil
}

// Create stores a new project under one of the owner's clients.
func (s *ProjectService) Create(ctx context.Context, ownerID string, p domain.Project) (*domain.ProjectListItem, error) {
	if err := checkReference(ctx, s.clients.FindOwned, "clientId", "Invalid client ID", p.ClientID, ownerID); err != nil {
		return nil, err
	}

	if p.Status == "" {
		p.Status = domain.ProjectStatusActive
	}
	p.ID = uuid.New().String()
	p.UserID = ownerID

	created, err := s.projects.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.stats, ownerID)
	return s.reload(ctx, created.ID, ownerID)
}

// Update applies the supplied fields to an owned project. Moving it to
// another client re-checks that client.
func (s *ProjectService) Update(ctx context.Context, ownerID, id string, patch domain.ProjectPatch) (*domain.ProjectListItem, error) {
	p, err := loadOwned(ctx, s.projects.FindOwned, "Project", id, ownerID)
	if err != nil {
		return nil, err
	}

	if patch.ClientID != nil && *patch.ClientID != p.ClientID {
		if err := checkReference(ctx, s.clients.FindOwned, "clientId", "Invalid client ID", *patch.ClientID, ownerID); err != nil {
			return nil, err
		}
	}

	patch.Apply(p)
	if _, err := s.projects.Update(ctx, *p); err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.stats, ownerID)
	return s.reload(ctx, p.ID, ownerID)
}

// Delete removes an owned project together with its tickets.
func (s *ProjectService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := loadOwned(ctx, s.projects.FindOwned, "Project", id, ownerID); err != nil {
		return err
	}

	deleted, err := s.projects.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return &domain.NotFoundError{Resource: "Project"}
	}

	invalidateStats(ctx, s.stats, ownerID)
	return nil
}

func (s *ProjectService) reload(ctx context.Context, id, ownerID string) (*domain.ProjectListItem, error) {
	return loadOwned(ctx, s.projects.FindOwnedItem, "Project", id, ownerID)
}
