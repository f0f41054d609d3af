package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sumire/consultdesk/internal/cache"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
	"github.com/sumire/consultdesk/internal/logging"
)

// TicketService handles ticket use cases.
type TicketService struct {
	tickets  TicketStore
	projects ProjectStore
	stats    cache.StatsCache
}

// NewTicketService creates a new TicketService.
func NewTicketService(tickets TicketStore, projects ProjectStore, stats cache.StatsCache) *TicketService {
	return &TicketService{tickets: tickets, projects: projects, stats: stats}
}

// List returns one page of the owner's tickets.
func (s *TicketService) List(ctx context.Context, ownerID string, f domain.TicketFilter, p listing.Params) (listing.Page[domain.TicketListItem], error) {
	items, total, err := s.tickets.List(ctx, ownerID, f, p)
	if err != nil {
		return listing.Page[domain.TicketListItem]{}, err
	}
	return listing.NewPage(items, total, p.Page), nil
}

// Get returns the ticket with its project summary.
func (s *TicketService) Get(ctx context.Context, ownerID, id string) (*domain.TicketListItem, error) {
	return loadOwned(ctx, s.tickets.FindOwnedItem, "Ticket", id, ownerID)
}

// Create stores a new ticket under one of the owner's projects. Omitted
// enums take their defaults.
func (s *TicketService) Create(ctx context.Context, ownerID string, t domain.Ticket) (*domain.TicketListItem, error) {
	if err := checkReference(ctx, s.projects.FindOwned, "projectId", "Invalid project ID", t.ProjectID, ownerID); err != nil {
		return nil, err
	}

	if t.Status == "" {
		t.Status = domain.TicketStatusOpen
	}
	if t.Priority == "" {
		t.Priority = domain.TicketPriorityMedium
	}
	if t.Type == "" {
		t.Type = domain.TicketTypeTask
	}
	t.ID = uuid.New().String()
	t.UserID = ownerID

	created, err := s.tickets.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.stats, ownerID)
	return s.Get(ctx, ownerID, created.ID)
}

// Update applies the supplied fields to an owned ticket. Moving it to
// another project re-checks that project.
func (s *TicketService) Update(ctx context.Context, ownerID, id string, patch domain.TicketPatch) (*domain.TicketListItem, error) {
	t, err := loadOwned(ctx, s.tickets.FindOwned, "Ticket", id, ownerID)
	if err != nil {
		return nil, err
	}

	if patch.ProjectID != nil && *patch.ProjectID != t.ProjectID {
		if err := checkReference(ctx, s.projects.FindOwned, "projectId", "Invalid project ID", *patch.ProjectID, ownerID); err != nil {
			return nil, err
		}
	}

	patch.Apply(t)
	if _, err := s.tickets.Update(ctx, *t); err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.stats, ownerID)
	return s.Get(ctx, ownerID, t.ID)
}

// Delete removes an owned ticket.
func (s *TicketService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := loadOwned(ctx, s.tickets.FindOwned, "Ticket", id, ownerID); err != nil {
		return err
	}

	deleted, err := s.tickets.Delete(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !deleted {
		return &domain.NotFoundError{Resource: "Ticket"}
	}

	invalidateStats(ctx, s.stats, ownerID)
	return nil
}

// Stats returns the owner's ticket breakdown, from the cache when possible.
func (s *TicketService) Stats(ctx context.Context, ownerID string) (*domain.TicketStats, error) {
	logger := logging.FromContext(ctx)

	cached, gen, err := s.stats.Get(ctx, ownerID)
	if err != nil {
		logger.Warn("stats cache read failed", "owner_id", ownerID, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	stats, storeErr := s.tickets.Stats(ctx, ownerID)
	if storeErr != nil {
		return nil, storeErr
	}

	// Without a known generation the entry could outlive a concurrent
	// invalidation, so a failed read skips the write.
	if err == nil {
		if err := s.stats.Set(ctx, ownerID, gen, stats); err != nil {
			logger.Warn("stats cache write failed", "owner_id", ownerID, "error", err)
		}
	}
	return stats, nil
}
