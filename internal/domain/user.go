package domain

import "time"

// AuthProvider identifies how a user signs in.
type AuthProvider string

const (
	AuthProviderPassword AuthProvider = "password"
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderGitHub   AuthProvider = "github"
)

// User represents an authenticated user. Every client, project and ticket
// belongs to exactly one user.
type User struct {
	ID           string       `json:"id" db:"id"`
	Email        string       `json:"email" db:"email"`
	Name         string       `json:"name" db:"name"`
	PasswordHash *string      `json:"-" db:"password_hash"`
	Provider     AuthProvider `json:"provider" db:"provider"`
	ProviderID   *string      `json:"-" db:"provider_id"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}
