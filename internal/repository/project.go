package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

const (
	projectColumns = `p.id, p.title, p.description, p.status, p.budget::float8 AS budget,
	p.start_date, p.end_date, p.client_id, p.user_id, p.created_at, p.updated_at`

	projectReturning = `RETURNING id, title, description, status, budget::float8 AS budget,
	start_date, end_date, client_id, user_id, created_at, updated_at`

	projectItemSelect = `SELECT ` + projectColumns + `,
	cl.id AS "client.id", cl.name AS "client.name", cl.company AS "client.company",
	(SELECT COUNT(*) FROM tickets t WHERE t.project_id = p.id) AS ticket_count
	FROM projects p
	JOIN clients cl ON cl.id = p.client_id`
)

var (
	projectResource = resource{
		name:        "project",
		selectSQL:   `SELECT ` + projectColumns + ` FROM projects p`,
		idColumn:    "p.id",
		ownerColumn: "p.user_id",
	}
	projectItemResource = resource{
		name:        "project",
		selectSQL:   projectItemSelect,
		idColumn:    "p.id",
		ownerColumn: "p.user_id",
	}
)

// ProjectRepository handles project data access operations.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// List returns one page of the owner's projects and the total match count.
func (r *ProjectRepository) List(ctx context.Context, ownerID string, f domain.ProjectFilter, p listing.Params) ([]domain.ProjectListItem, int, error) {
	var w where
	w.eq("p.user_id", ownerID)
	if f.Status != nil {
		w.eq("p.status", *f.Status)
	}
	if f.ClientID != nil {
		w.eq("p.client_id", *f.ClientID)
	}
	w.search(listing.Search(domain.ProjectSearchFields, p.Search), qualify("p", domain.ProjectSearchFields))

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM projects p`+w.String(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	limit, args := w.page(p.Page)
	query := projectItemSelect + w.String() + orderBy(p.Sort, domain.ProjectSortFields, "p") + limit

	items := []domain.ProjectListItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return items, total, nil
}

// FindOwned retrieves a project by id if ownerID owns it.
func (r *ProjectRepository) FindOwned(ctx context.Context, id, ownerID string) (*domain.Project, bool, error) {
	return findOwned[domain.Project](ctx, r.db, projectResource, id, ownerID)
}

// FindOwnedItem is FindOwned with the client summary and ticket count.
func (r *ProjectRepository) FindOwnedItem(ctx context.Context, id, ownerID string) (*domain.ProjectListItem, bool, error) {
	return findOwned[domain.ProjectListItem](ctx, r.db, projectItemResource, id, ownerID)
}

// ListByClient returns every project of a client, newest first.
func (r *ProjectRepository) ListByClient(ctx context.Context, clientID, ownerID string) ([]domain.ProjectListItem, error) {
	items := []domain.ProjectListItem{}
	err := r.db.SelectContext(ctx, &items,
		projectItemSelect+` WHERE p.client_id = $1 AND p.user_id = $2 ORDER BY p.created_at DESC, p.id DESC`,
		clientID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects of client %s: %w", clientID, err)
	}
	return items, nil
}

// Create inserts a project and returns the stored row.
func (r *ProjectRepository) Create(ctx context.Context, p domain.Project) (*domain.Project, error) {
	var out domain.Project
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO projects (id, title, description, status, budget, start_date, end_date, client_id, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) `+projectReturning,
		p.ID, p.Title, p.Description, p.Status, p.Budget, p.StartDate, p.EndDate, p.ClientID, p.UserID,
	).StructScan(&out)
	if err != nil {
		return nil, mapWriteError("create project", err, "Project already exists")
	}
	return &out, nil
}

// Update stores every mutable field of p and refreshes updated_at.
func (r *ProjectRepository) Update(ctx context.Context, p domain.Project) (*domain.Project, error) {
	var out domain.Project
	err := r.db.QueryRowxContext(ctx,
		`UPDATE projects
		 SET title = $3, description = $4, status = $5, budget = $6, start_date = $7, end_date = $8,
		     client_id = $9, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 `+projectReturning,
		p.ID, p.UserID, p.Title, p.Description, p.Status, p.Budget, p.StartDate, p.EndDate, p.ClientID,
	).StructScan(&out)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, mapWriteError("update project "+p.ID, err, "Project already exists")
	}
	return &out, nil
}

// Delete removes the project; its tickets cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	return deleteOwned(ctx, r.db, "projects", id, ownerID)
}
