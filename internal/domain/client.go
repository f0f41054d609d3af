package domain

import (
	"strings"
	"time"
)

// Client is a customer of the user.
type Client struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Company   string    `json:"company" db:"company"`
	City      *string   `json:"city,omitempty" db:"city"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Address   *string   `json:"address,omitempty" db:"address"`
	UserID    string    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ClientListItem is a client row as returned by list calls.
type ClientListItem struct {
	Client
	ProjectCount int              `json:"projectCount" db:"project_count"`
	Projects     []ProjectSummary `json:"projects" db:"-"`
}

// ClientDetail is a client with its projects.
type ClientDetail struct {
	Client
	Projects []ProjectListItem `json:"projects"`
}

// ClientFilter narrows a client listing. Clients have no equality filters
// beyond ownership.
type ClientFilter struct{}

// ClientPatch carries the fields supplied to an update. Nil means unchanged.
type ClientPatch struct {
	Name    *string
	Email   *string
	Company *string
	City    *string
	Phone   *string
	Address *string
}

// Apply copies every supplied field onto c.
func (p ClientPatch) Apply(c *Client) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = NormalizeEmail(*p.Email)
	}
	if p.Company != nil {
		c.Company = *p.Company
	}
	if p.City != nil {
		c.City = p.City
	}
	if p.Phone != nil {
		c.Phone = p.Phone
	}
	if p.Address != nil {
		c.Address = p.Address
	}
}

// NormalizeEmail is the canonical form used for storage and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ClientSortFields maps the sortable API field names to columns.
var ClientSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
	"company":   "company",
	"city":      "city",
}

// ClientSearchFields are matched by the free-text search of a client listing.
var ClientSearchFields = []string{"name", "email", "company"}
