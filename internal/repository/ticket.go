package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

const (
	ticketColumns = `t.id, t.title, t.description, t.status, t.priority, t.type,
	t.project_id, t.user_id, t.created_at, t.updated_at`

	ticketReturning = `RETURNING id, title, description, status, priority, type,
	project_id, user_id, created_at, updated_at`

	ticketItemSelect = `SELECT ` + ticketColumns + `,
	pr.id AS "project.id", pr.title AS "project.title",
	cl.name AS "project.client.name", cl.company AS "project.client.company"
	FROM tickets t
	JOIN projects pr ON pr.id = t.project_id
	JOIN clients cl ON cl.id = pr.client_id`
)

var (
	ticketResource = resource{
		name:        "ticket",
		selectSQL:   `SELECT ` + ticketColumns + ` FROM tickets t`,
		idColumn:    "t.id",
		ownerColumn: "t.user_id",
	}
	ticketItemResource = resource{
		name:        "ticket",
		selectSQL:   ticketItemSelect,
		idColumn:    "t.id",
		ownerColumn: "t.user_id",
	}
)

// TicketRepository handles ticket data access operations.
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// List returns one page of the owner's tickets and the total match count.
func (r *TicketRepository) List(ctx context.Context, ownerID string, f domain.TicketFilter, p listing.Params) ([]domain.TicketListItem, int, error) {
	var w where
	w.eq("t.user_id", ownerID)
	if f.Status != nil {
		w.eq("t.status", *f.Status)
	}
	if f.Priority != nil {
		w.eq("t.priority", *f.Priority)
	}
	if f.Type != nil {
		w.eq("t.type", *f.Type)
	}
	if f.ProjectID != nil {
		w.eq("t.project_id", *f.ProjectID)
	}
	w.search(listing.Search(domain.TicketSearchFields, p.Search), qualify("t", domain.TicketSearchFields))

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tickets t`+w.String(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	limit, args := w.page(p.Page)
	query := ticketItemSelect + w.String() + orderBy(p.Sort, domain.TicketSortFields, "t") + limit

	items := []domain.TicketListItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	return items, total, nil
}

// FindOwned retrieves a ticket by id if ownerID owns it.
func (r *TicketRepository) FindOwned(ctx context.Context, id, ownerID string) (*domain.Ticket, bool, error) {
	return findOwned[domain.Ticket](ctx, r.db, ticketResource, id, ownerID)
}

// FindOwnedItem is FindOwned with the project summary.
func (r *TicketRepository) FindOwnedItem(ctx context.Context, id, ownerID string) (*domain.TicketListItem, bool, error) {
	return findOwned[domain.TicketListItem](ctx, r.db, ticketItemResource, id, ownerID)
}

// ListByProject returns every ticket of a project, newest first.
func (r *TicketRepository) ListByProject(ctx context.Context, projectID, ownerID string) ([]domain.Ticket, error) {
	tickets := []domain.Ticket{}
	err := r.db.SelectContext(ctx, &tickets,
		`SELECT `+ticketColumns+` FROM tickets t
		 WHERE t.project_id = $1 AND t.user_id = $2
		 ORDER BY t.created_at DESC, t.id DESC`,
		projectID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tickets of project %s: %w", projectID, err)
	}
	return tickets, nil
}

// Create inserts a ticket and returns the stored row.
func (r *TicketRepository) Create(ctx context.Context, t domain.Ticket) (*domain.Ticket, error) {
	var out domain.Ticket
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO tickets (id, title, description, status, priority, type, project_id, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) `+ticketReturning,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.Type, t.ProjectID, t.UserID,
	).StructScan(&out)
	if err != nil {
		return nil, mapWriteError("create ticket", err, "Ticket already exists")
	}
	return &out, nil
}

// Update stores every mutable field of t and refreshes updated_at.
func (r *TicketRepository) Update(ctx context.Context, t domain.Ticket) (*domain.Ticket, error) {
	var out domain.Ticket
	err := r.db.QueryRowxContext(ctx,
		`UPDATE tickets
		 SET title = $3, description = $4, status = $5, priority = $6, type = $7,
		     project_id = $8, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 `+ticketReturning,
		t.ID, t.UserID, t.Title, t.Description, t.Status, t.Priority, t.Type, t.ProjectID,
	).StructScan(&out)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, mapWriteError("update ticket "+t.ID, err, "Ticket already exists")
	}
	return &out, nil
}

// Delete removes the ticket.
func (r *TicketRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return deleteOwned(ctx, r.db, "tickets", id, ownerID)
}

// Stats counts the owner's tickets by status, priority and type.
func (r *TicketRepository) Stats(ctx context.Context, ownerID string) (*domain.TicketStats, error) {
	stats := domain.TicketStats{
		ByStatus:   []domain.StatusCount{},
		ByPriority: []domain.PriorityCount{},
		ByType:     []domain.TypeCount{},
	}

	if err := r.db.SelectContext(ctx, &stats.ByStatus,
		`SELECT status, COUNT(*) AS count FROM tickets WHERE user_id = $1 GROUP BY status ORDER BY status`,
		ownerID); err != nil {
		return nil, fmt.Errorf("ticket stats by status: %w", err)
	}
	if err := r.db.SelectContext(ctx, &stats.ByPriority,
		`SELECT priority, COUNT(*) AS count FROM tickets WHERE user_id = $1 GROUP BY priority ORDER BY priority`,
		ownerID); err != nil {
		return nil, fmt.Errorf("ticket stats by priority: %w", err)
	}
	if err := r.db.SelectContext(ctx, &stats.ByType,
		`SELECT type, COUNT(*) AS count FROM tickets WHERE user_id = $1 GROUP BY type ORDER BY type`,
		ownerID); err != nil {
		return nil, fmt.Errorf("ticket stats by type: %w", err)
	}
	return &stats, nil
}
