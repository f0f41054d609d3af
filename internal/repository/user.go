package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sumire/consultdesk/internal/domain"
)

const userColumns = `id, email, name, password_hash, provider, provider_id, created_at, updated_at`

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, "find user by id "+id, `WHERE id = $1`, id)
}

// FindByEmail retrieves a user by email, compared lower-cased.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "find user by email", `WHERE email = $1`, domain.NormalizeEmail(email))
}

// FindByProviderID retrieves a user by their OAuth provider and provider ID.
func (r *UserRepository) FindByProviderID(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	return r.findOne(ctx, fmt.Sprintf("find user by provider %s/%s", provider, providerID),
		`WHERE provider = $1 AND provider_id = $2`, provider, providerID)
}

func (r *UserRepository) findOne(ctx context.Context, op, cond string, args ...any) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users `+cond, args...)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// Create inserts a user. A taken email is reported as a conflict.
func (r *UserRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	var out domain.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, provider, provider_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		user.ID, domain.NormalizeEmail(user.Email), user.Name, user.PasswordHash, user.Provider, user.ProviderID,
	).StructScan(&out)
	if err != nil {
		return nil, mapWriteError("create user", err, "User with this email already exists")
	}
	return &out, nil
}
