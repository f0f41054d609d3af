package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
	"github.com/sumire/consultdesk/internal/repository/migrations"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Migrate applies every pending embedded migration.
func Migrate(db *sqlx.DB) error {
	driver, err := migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// resource describes how to load a single row of one resource type.
type resource struct {
	name        string
	selectSQL   string
	idColumn    string
	ownerColumn string
}

// findOwned loads the row with the given id only if ownerID owns it. A row
// that is missing and a row owned by someone else are indistinguishable to
// the caller: both report found == false.
func findOwned[T any](ctx context.Context, q sqlx.QueryerContext, r resource, id, ownerID string) (*T, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, nil
	}

	query := r.selectSQL + " WHERE " + r.idColumn + " = $1 AND " + r.ownerColumn + " = $2"

	var out T
	err := sqlx.GetContext(ctx, q, &out, query, id, ownerID)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find %s %s: %w", r.name, id, err)
	}
	return &out, true, nil
}

// deleteOwned removes the row if ownerID owns it and reports whether a row
// was removed.
func deleteOwned(ctx context.Context, db sqlx.ExecerContext, table, id, ownerID string) (bool, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1 AND user_id = $2", id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete from %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s %s: %w", table, id, err)
	}
	return n > 0, nil
}

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) eq(column string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

// search adds the free-text predicate as one OR group. Fields without a
// column mapping are ignored.
func (w *where) search(p listing.Predicate, columns map[string]string) {
	if p.IsZero() {
		return
	}

	ors := make([]string, 0, len(p.Fields))
	n := len(w.args) + 1
	for _, f := range p.Fields {
		col, ok := columns[f]
		if !ok {
			continue
		}
		ors = append(ors, fmt.Sprintf("%s ILIKE $%d", col, n))
	}
	if len(ors) == 0 {
		return
	}

	w.args = append(w.args, p.LikePattern())
	w.clauses = append(w.clauses, "("+strings.Join(ors, " OR ")+")")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the clause plus the
// full argument list.
func (w *where) page(req listing.PageRequest) (string, []any) {
	args := append(append([]any{}, w.args...), req.Limit, req.Skip())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

// orderBy renders a whitelisted sort against the table alias. The id column
// breaks ties so paging is stable.
func orderBy(s listing.Sort, columns map[string]string, alias string) string {
	col, ok := columns[s.Field]
	if !ok {
		col = columns[listing.DefaultSortField]
	}
	dir := "DESC"
	if s.Order == listing.Asc {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s.id %s", sortExpr(alias+"."+col), dir, alias, dir)
}

// rankedColumns hold enum values stored as text. They sort by the position
// of the value in its declared list, not alphabetically.
var rankedColumns = map[string][]string{
	"p.status":   enumValues(domain.ProjectStatuses),
	"t.status":   enumValues(domain.TicketStatuses),
	"t.priority": enumValues(domain.TicketPriorities),
	"t.type":     enumValues(domain.TicketTypes),
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = "'" + string(v) + "'"
	}
	return out
}

func sortExpr(column string) string {
	values, ok := rankedColumns[column]
	if !ok {
		return column
	}
	return fmt.Sprintf("array_position(ARRAY[%s]::text[], %s)", strings.Join(values, ","), column)
}

// qualify prefixes every column of a search mapping with alias.
func qualify(alias string, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = alias + "." + f
	}
	return out
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateForeignKeyViolation
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(op string, err error, conflictMsg string) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, &domain.ConflictError{Message: conflictMsg})
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: referenced record does not exist", op, domain.ErrInvalidInput)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
