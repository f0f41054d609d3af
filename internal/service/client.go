package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sumire/consultdesk/internal/cache"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

// ClientService handles client use cases.
type ClientService struct {
	clients  ClientStore
	projects ProjectStore
	stats    cache.StatsCache
}

// NewClientService creates a new ClientService.
func NewClientService(clients ClientStore, projects ProjectStore, stats cache.StatsCache) *ClientService {
	return &ClientService{clients: clients, projects: projects, stats: stats}
}

// List returns one page of the owner's clients.
func (s *ClientService) List(ctx context.Context, ownerID string, f domain.ClientFilter, p listing.Params) (listing.Page[domain.ClientListItem], error) {
	items, total, err := s.clients.List(ctx, ownerID, f, p)
	if err != nil {
		return listing.Page[domain.ClientListItem]{}, err
	}
	return listing.NewPage(items, total, p.Page), nil
}

// Get returns the client with its projects.
func (s *ClientService) Get(ctx context.Context, ownerID, id string) (*domain.ClientDetail, error) {
	c, err := loadOwned(ctx, s.clients.FindOwned, "Client", id, ownerID)
	if err != nil {
		return nil, err
	}

	projects, err := s.projects.ListByClient(ctx, c.ID, ownerID)
	if err != nil {
		return nil, err
	}
	return &domain.ClientDetail{Client: *c, Projects: projects}, nil
}

// Create stores a new client for the owner. The email must not be used by
// any other client.
func (s *ClientService) Create(ctx context.Context, ownerID string, c domain.Client) (*domain.Client, error) {
	c.Email = domain.NormalizeEmail(c.Email)

	taken, err := s.clients.EmailTaken(ctx, c.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &domain.ConflictError{Message: "Client with this email already exists"}
	}

	c.ID = uuid.New().String()
	c.UserID = ownerID

	created, err := s.clients.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.stats, ownerID)
	return created, nil
}

// Update applies the supplied fields to an owned client.
func (s *ClientService) Update(ctx context.Context, ownerID, id string, patch domain.ClientPatch) (*domain.Client, error) {
	c, err := loadOwned(ctx, s.clients.FindOwned, "Client", id, ownerID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil && domain.NormalizeEmail(*patch.Email) != c.Email {
		taken, err := s.clients.EmailTaken(ctx, *patch.Email, c.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &domain.ConflictError{Message: "Email already in use"}
		}
	}

	patch.Apply(c)
	updated, err := s.clients.Update(ctx, *c)
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.stats, ownerID)
	return updated, nil
}

// Delete removes an owned client together with its projects and tickets.
func (s *ClientService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := loadOwned(ctx, s.clients.FindOwned, "Client", id, ownerID); err != nil {
		return err
	}

	deleted, err := s.clients.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return &domain.NotFoundError{Resource: "Client"}
	}

	invalidateStats(ctx, s.stats, ownerID)
	return nil
}
