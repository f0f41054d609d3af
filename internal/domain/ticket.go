package domain

import "time"

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketStatuses lists the statuses in lifecycle order, which is also the
// sort order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed,
}

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Open reports whether the ticket still needs work.
func (s TicketStatus) Open() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketPriorities runs from least to most pressing.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent,
}

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

type TicketType string

const (
	TicketTypeBug     TicketType = "BUG"
	TicketTypeFeature TicketType = "FEATURE"
	TicketTypeTask    TicketType = "TASK"
	TicketTypeSupport TicketType = "SUPPORT"
)

var TicketTypes = []TicketType{TicketTypeBug, TicketTypeFeature, TicketTypeTask, TicketTypeSupport}

func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeBug, TicketTypeFeature, TicketTypeTask, TicketTypeSupport:
		return true
	}
	return false
}

// Ticket represents a support request or task within a project.
type Ticket struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description *string        `json:"description,omitempty" db:"description"`
	Status      TicketStatus   `json:"status" db:"status"`
	Priority    TicketPriority `json:"priority" db:"priority"`
	Type        TicketType     `json:"type" db:"type"`
	ProjectID   string         `json:"projectId" db:"project_id"`
	UserID      string         `json:"userId" db:"user_id"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// ProjectRef is the project summary embedded in ticket rows.
type ProjectRef struct {
	ID     string           `json:"id" db:"id"`
	Title  string           `json:"title" db:"title"`
	Client ProjectClientRef `json:"client" db:"client"`
}

// ProjectClientRef is the client summary nested inside ProjectRef.
type ProjectClientRef struct {
	Name    string `json:"name" db:"name"`
	Company string `json:"company" db:"company"`
}

// TicketListItem is a ticket row as returned by list and detail calls.
type TicketListItem struct {
	Ticket
	Project ProjectRef `json:"project" db:"project"`
}

// TicketFilter narrows a ticket listing.
type TicketFilter struct {
	Status    *TicketStatus
	Priority  *TicketPriority
	Type      *TicketType
	ProjectID *string
}

// TicketPatch carries the fields supplied to an update.
type TicketPatch struct {
	Title       *string
	Description *string
	Status      *TicketStatus
	Priority    *TicketPriority
	Type        *TicketType
	ProjectID   *string
}

// Apply copies every supplied field onto t.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
}

// TicketStats is the per-owner ticket breakdown.
type TicketStats struct {
	ByStatus   []StatusCount   `json:"byStatus"`
	ByPriority []PriorityCount `json:"byPriority"`
	ByType     []TypeCount     `json:"byType"`
}

type StatusCount struct {
	Status TicketStatus `json:"status" db:"status"`
	Count  int          `json:"count" db:"count"`
}

type PriorityCount struct {
	Priority TicketPriority `json:"priority" db:"priority"`
	Count    int            `json:"count" db:"count"`
}

type TypeCount struct {
	Type  TicketType `json:"type" db:"type"`
	Count int        `json:"count" db:"count"`
}

// TicketSortFields maps the sortable API field names to columns.
var TicketSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
	"type":      "type",
}

var TicketSearchFields = []string{"title", "description"}
