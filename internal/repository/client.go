package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

const clientColumns = `c.id, c.name, c.email, c.company, c.city, c.phone, c.address,
	c.user_id, c.created_at, c.updated_at`

var clientResource = resource{
	name:        "client",
	selectSQL:   `SELECT ` + clientColumns + ` FROM clients c`,
	idColumn:    "c.id",
	ownerColumn: "c.user_id",
}

// ClientRepository handles client data access operations.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository creates a new ClientRepository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// List returns one page of the owner's clients and the total match count.
func (r *ClientRepository) List(ctx context.Context, ownerID string, _ domain.ClientFilter, p listing.Params) ([]domain.ClientListItem, int, error) {
	var w where
	w.eq("c.user_id", ownerID)
	w.search(listing.Search(domain.ClientSearchFields, p.Search), qualify("c", domain.ClientSearchFields))

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM clients c`+w.String(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	limit, args := w.page(p.Page)
	query := `SELECT ` + clientColumns + `,
		(SELECT COUNT(*) FROM projects p WHERE p.client_id = c.id) AS project_count
		FROM clients c` + w.String() + orderBy(p.Sort, domain.ClientSortFields, "c") + limit

	items := []domain.ClientListItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	if err := r.attachProjects(ctx, ownerID, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type clientProjectRow struct {
	ClientID string `db:"client_id"`
	domain.ProjectSummary
}

// attachProjects fills the project summaries of one page of clients, newest
// project first, with a single query.
func (r *ClientRepository) attachProjects(ctx context.Context, ownerID string, items []domain.ClientListItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	byClient := make(map[string]*domain.ClientListItem, len(items))
	for i := range items {
		items[i].Projects = []domain.ProjectSummary{}
		ids[i] = items[i].ID
		byClient[items[i].ID] = &items[i]
	}

	query, args, err := sqlx.In(`SELECT p.client_id, p.id, p.title, p.status
		FROM projects p
		WHERE p.user_id = ? AND p.client_id IN (?)
		ORDER BY p.created_at DESC, p.id DESC`, ownerID, ids)
	if err != nil {
		return fmt.Errorf("build client projects query: %w", err)
	}

	var rows []clientProjectRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list client projects: %w", err)
	}
	for _, row := range rows {
		if item, ok := byClient[row.ClientID]; ok {
			item.Projects = append(item.Projects, row.ProjectSummary)
		}
	}
	return nil
}

// FindOwned retrieves a client by id if ownerID owns it.
func (r *ClientRepository) FindOwned(ctx context.Context, id, ownerID string) (*domain.Client, bool, error) {
	return findOwned[domain.Client](ctx, r.db, clientResource, id, ownerID)
}

// EmailTaken reports whether any client other than excludeID uses email.
// Client emails are unique across owners.
func (r *ClientRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM clients WHERE email = $1`
	args := []any{domain.NormalizeEmail(email)}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`

	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, args...); err != nil {
		return false, fmt.Errorf("check client email: %w", err)
	}
	return taken, nil
}

// Create inserts a client and returns the stored row.
func (r *ClientRepository) Create(ctx context.Context, c domain.Client) (*domain.Client, error) {
	var out domain.Client
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO clients (id, name, email, company, city, phone, address, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, name, email, company, city, phone, address, user_id, created_at, updated_at`,
		c.ID, c.Name, domain.NormalizeEmail(c.Email), c.Company, c.City, c.Phone, c.Address, c.UserID,
	).StructScan(&out)
	if err != nil {
		return nil, mapWriteError("create client", err, "Client with this email already exists")
	}
	return &out, nil
}

// Update stores every mutable field of c and refreshes updated_at.
func (r *ClientRepository) Update(ctx context.Context, c domain.Client) (*domain.Client, error) {
	var out domain.Client
	err := r.db.QueryRowxContext(ctx,
		`UPDATE clients
		 SET name = $3, email = $4, company = $5, city = $6, phone = $7, address = $8, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, name, email, company, city, phone, address, user_id, created_at, updated_at`,
		c.ID, c.UserID, c.Name, domain.NormalizeEmail(c.Email), c.Company, c.City, c.Phone, c.Address,
	).StructScan(&out)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, mapWriteError("update client "+c.ID, err, "Email already in use")
	}
	return &out, nil
}

// Delete removes the client; its projects and their tickets cascade.
func (r *ClientRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return deleteOwned(ctx, r.db, "clients", id, ownerID)
}
