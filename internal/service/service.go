// Package service implements the business rules for clients, projects,
// tickets and authentication on top of the store interfaces defined here.
package service

import (
	"context"

	"github.com/sumire/consultdesk/internal/cache"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
	"github.com/sumire/consultdesk/internal/logging"
)

// ClientStore defines the client data access interface consumed by the services.
type ClientStore interface {
	List(ctx context.Context, ownerID string, f domain.ClientFilter, p listing.Params) ([]domain.ClientListItem, int, error)
	FindOwned(ctx context.Context, id, ownerID string) (*domain.Client, bool, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, c domain.Client) (*domain.Client, error)
	Update(ctx context.Context, c domain.Client) (*domain.Client, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}

// ProjectStore defines the project data access interface consumed by the services.
type ProjectStore interface {
	List(ctx context.Context, ownerID string, f domain.ProjectFilter, p listing.Params) ([]domain.ProjectListItem, int, error)
	FindOwned(ctx context.Context, id, ownerID string) (*domain.Project, bool, error)
	FindOwnedItem(ctx context.Context, id, ownerID string) (*domain.ProjectListItem, bool, error)
	ListByClient(ctx context.Context, clientID, ownerID string) ([]domain.ProjectListItem, error)
	Create(ctx context.Context, p domain.Project) (*domain.Project, error)
	Update(ctx context.Context, p domain.Project) (*domain.Project, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
}

// TicketStore defines the ticket data access interface consumed by the services.
type TicketStore interface {
	List(ctx context.Context, ownerID string, f domain.TicketFilter, p listing.Params) ([]domain.TicketListItem, int, error)
	FindOwned(ctx context.Context, id, ownerID string) (*domain.Ticket, bool, error)
	FindOwnedItem(ctx context.Context, id, ownerID string) (*domain.TicketListItem, bool, error)
	ListByProject(ctx context.Context, projectID, ownerID string) ([]domain.Ticket, error)
	Create(ctx context.Context, t domain.Ticket) (*domain.Ticket, error)
	Update(ctx context.Context, t domain.Ticket) (*domain.Ticket, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	Stats(ctx context.Context, ownerID string) (*domain.TicketStats, error)
}

type findFunc[T any] func(ctx context.Context, id, ownerID string) (*T, bool, error)

// loadOwned turns a missing or foreign record into a NotFoundError.
func loadOwned[T any](ctx context.Context, find findFunc[T], what, id, ownerID string) (*T, error) {
	rec, found, err := find(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.NotFoundError{Resource: what}
	}
	return rec, nil
}

// checkReference verifies a foreign key names a record the owner holds. A
// miss is a validation error on field, never a 404.
func checkReference[T any](ctx context.Context, find findFunc[T], field, message, id, ownerID string) error {
	_, found, err := find(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if !found {
		return domain.NewValidationError(field, message)
	}
	return nil
}

// invalidateStats drops the owner's cached ticket stats. Failures are
// logged; a stale entry still expires with its TTL.
func invalidateStats(ctx context.Context, stats cache.StatsCache, ownerID string) {
	if err := stats.Invalidate(ctx, ownerID); err != nil {
		logging.FromContext(ctx).Warn("failed to invalidate stats cache", "owner_id", ownerID, "error", err)
	}
}
