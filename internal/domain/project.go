package domain

import "time"

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
)

// ProjectStatuses lists the statuses in the order they sort.
var ProjectStatuses = []ProjectStatus{
	ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled,
}

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

// Project is a piece of work done for a client.
type Project struct {
	ID          string        `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Description *string       `json:"description,omitempty" db:"description"`
	Status      ProjectStatus `json:"status" db:"status"`
	Budget      *float64      `json:"budget,omitempty" db:"budget"`
	StartDate   *time.Time    `json:"startDate,omitempty" db:"start_date"`
	EndDate     *time.Time    `json:"endDate,omitempty" db:"end_date"`
	ClientID    string        `json:"clientId" db:"client_id"`
	UserID      string        `json:"userId" db:"user_id"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

// ClientRef is the client summary embedded in project rows.
type ClientRef struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Company string `json:"company" db:"company"`
}

// ProjectSummary is the short project form listed under each client.
type ProjectSummary struct {
	ID     string        `json:"id" db:"id"`
	Title  string        `json:"title" db:"title"`
	Status ProjectStatus `json:"status" db:"status"`
}

// ProjectListItem is a project row as returned by list calls.
type ProjectListItem struct {
	Project
	Client      ClientRef `json:"client" db:"client"`
	TicketCount int       `json:"ticketCount" db:"ticket_count"`
}

// ProjectDetail is a project with its client and tickets, newest first.
type ProjectDetail struct {
	ProjectListItem
	Tickets []Ticket `json:"tickets"`
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	Status   *ProjectStatus
	ClientID *string
}

// ProjectPatch carries the fields supplied to an update.
type ProjectPatch struct {
	Title       *string
	Description *string
	Status      *ProjectStatus
	Budget      *float64
	StartDate   *time.Time
	EndDate     *time.Time
	ClientID    *string
}

// Apply copies every supplied field onto p.
func (pp ProjectPatch) Apply(p *Project) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Description != nil {
		p.Description = pp.Description
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.Budget != nil {
		p.Budget = pp.Budget
	}
	if pp.StartDate != nil {
		p.StartDate = pp.StartDate
	}
	if pp.EndDate != nil {
		p.EndDate = pp.EndDate
	}
	if pp.ClientID != nil {
		p.ClientID = *pp.ClientID
	}
}

// ProjectSortFields maps the sortable API field names to columns.
var ProjectSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"status":    "status",
	"budget":    "budget",
	"startDate": "start_date",
	"endDate":   "end_date",
}

var ProjectSearchFields = []string{"title", "description"}
