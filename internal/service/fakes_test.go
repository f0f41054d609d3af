package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sumire/consultdesk/internal/cache"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

// memDB is an in-memory stand-in for the PostgreSQL repositories.
type memDB struct {
	mu       sync.Mutex
	clients  map[string]domain.Client
	projects map[string]domain.Project
	tickets  map[string]domain.Ticket
	users    map[string]domain.User

	statsCalls int
	// onStats runs before each stats load, outside the lock.
	onStats func()
}

func newMemDB() *memDB {
	return &memDB{
		clients:  map[string]domain.Client{},
		projects: map[string]domain.Project{},
		tickets:  map[string]domain.Ticket{},
		users:    map[string]domain.User{},
	}
}

func paginate[T any](items []T, req listing.PageRequest) []T {
	start := min(req.Skip(), len(items))
	end := min(start+req.Limit, len(items))
	return items[start:end]
}

type memClients struct{ db *memDB }

func (m memClients) List(_ context.Context, ownerID string, _ domain.ClientFilter, p listing.Params) ([]domain.ClientListItem, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	pred := listing.Search(domain.ClientSearchFields, p.Search)
	var out []domain.ClientListItem
	for _, c := range m.db.clients {
		if c.UserID != ownerID {
			continue
		}
		if !pred.Matches(func(f string) string {
			return map[string]string{"name": c.Name, "email": c.Email, "company": c.Company}[f]
		}) {
			continue
		}
		summaries := []domain.ProjectSummary{}
		for _, pr := range m.db.projects {
			if pr.ClientID == c.ID {
				summaries = append(summaries, domain.ProjectSummary{ID: pr.ID, Title: pr.Title, Status: pr.Status})
			}
		}
		out = append(out, domain.ClientListItem{Client: c, ProjectCount: len(summaries), Projects: summaries})
	}
	slices.SortFunc(out, func(a, b domain.ClientListItem) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(out, p.Page), len(out), nil
}

func (m memClients) FindOwned(_ context.Context, id, ownerID string) (*domain.Client, bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.clients[id]
	if !ok || c.UserID != ownerID {
		return nil, false, nil
	}
	return &c, true, nil
}

func (m memClients) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, c := range m.db.clients {
		if c.Email == domain.NormalizeEmail(email) && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m memClients) Create(_ context.Context, c domain.Client) (*domain.Client, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c.CreatedAt = time.Now().Add(time.Duration(len(m.db.clients)) * time.Millisecond)
	c.UpdatedAt = c.CreatedAt
	m.db.clients[c.ID] = c
	return &c, nil
}

func (m memClients) Update(_ context.Context, c domain.Client) (*domain.Client, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c.UpdatedAt = time.Now()
	m.db.clients[c.ID] = c
	return &c, nil
}

func (m memClients) Delete(_ context.Context, id, ownerID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.clients[id]
	if !ok || c.UserID != ownerID {
		return false, nil
	}
	delete(m.db.clients, id)
	for pid, p := range m.db.projects {
		if p.ClientID == id {
			m.db.deleteProjectLocked(pid)
		}
	}
	return true, nil
}

func (db *memDB) deleteProjectLocked(id string) {
	delete(db.projects, id)
	for tid, t := range db.tickets {
		if t.ProjectID == id {
			delete(db.tickets, tid)
		}
	}
}

type memProjects struct{ db *memDB }

func (m memProjects) itemLocked(p domain.Project) domain.ProjectListItem {
	c := m.db.clients[p.ClientID]
	n := 0
	for _, t := range m.db.tickets {
		if t.ProjectID == p.ID {
			n++
		}
	}
	return domain.ProjectListItem{
		Project:     p,
		Client:      domain.ClientRef{ID: c.ID, Name: c.Name, Company: c.Company},
		TicketCount: n,
	}
}

func (m memProjects) List(_ context.Context, ownerID string, f domain.ProjectFilter, p listing.Params) ([]domain.ProjectListItem, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.ProjectListItem
	for _, pr := range m.db.projects {
		if pr.UserID != ownerID ||
			(f.Status != nil && pr.Status != *f.Status) ||
			(f.ClientID != nil && pr.ClientID != *f.ClientID) {
			continue
		}
		out = append(out, m.itemLocked(pr))
	}
	slices.SortFunc(out, func(a, b domain.ProjectListItem) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(out, p.Page), len(out), nil
}

func (m memProjects) FindOwned(_ context.Context, id, ownerID string) (*domain.Project, bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.projects[id]
	if !ok || p.UserID != ownerID {
		return nil, false, nil
	}
	return &p, true, nil
}

func (m memProjects) FindOwnedItem(ctx context.Context, id, ownerID string) (*domain.ProjectListItem, bool, error) {
	p, found, err := m.FindOwned(ctx, id, ownerID)
	if !found || err != nil {
		return nil, found, err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	item := m.itemLocked(*p)
	return &item, true, nil
}

func (m memProjects) ListByClient(_ context.Context, clientID, ownerID string) ([]domain.ProjectListItem, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []domain.ProjectListItem{}
	for _, p := range m.db.projects {
		if p.ClientID == clientID && p.UserID == ownerID {
			out = append(out, m.itemLocked(p))
		}
	}
	return out, nil
}

func (m memProjects) Create(_ context.Context, p domain.Project) (*domain.Project, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p.CreatedAt = time.Now().Add(time.Duration(len(m.db.projects)) * time.Millisecond)
	p.UpdatedAt = p.CreatedAt
	m.db.projects[p.ID] = p
	return &p, nil
}

func (m memProjects) Update(_ context.Context, p domain.Project) (*domain.Project, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p.UpdatedAt = time.Now()
	m.db.projects[p.ID] = p
	return &p, nil
}

func (m memProjects) Delete(_ context.Context, id, ownerID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.projects[id]
	if !ok || p.UserID != ownerID {
		return false, nil
	}
	m.db.deleteProjectLocked(id)
	return true, nil
}

type memTickets struct{ db *memDB }

func (m memTickets) itemLocked(t domain.Ticket) domain.TicketListItem {
	p := m.db.projects[t.ProjectID]
	c := m.db.clients[p.ClientID]
	return domain.TicketListItem{
		Ticket: t,
		Project: domain.ProjectRef{
			ID:     p.ID,
			Title:  p.Title,
			Client: domain.ProjectClientRef{Name: c.Name, Company: c.Company},
		},
	}
}

func (m memTickets) List(_ context.Context, ownerID string, f domain.TicketFilter, p listing.Params) ([]domain.TicketListItem, int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []domain.TicketListItem
	for _, t := range m.db.tickets {
		if t.UserID != ownerID ||
			(f.Status != nil && t.Status != *f.Status) ||
			(f.Priority != nil && t.Priority != *f.Priority) ||
			(f.Type != nil && t.Type != *f.Type) ||
			(f.ProjectID != nil && t.ProjectID != *f.ProjectID) {
			continue
		}
		out = append(out, m.itemLocked(t))
	}
	return paginate(out, p.Page), len(out), nil
}

func (m memTickets) FindOwned(_ context.Context, id, ownerID string) (*domain.Ticket, bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	t, ok := m.db.tickets[id]
	if !ok || t.UserID != ownerID {
		return nil, false, nil
	}
	return &t, true, nil
}

func (m memTickets) FindOwnedItem(ctx context.Context, id, ownerID string) (*domain.TicketListItem, bool, error) {
	t, found, err := m.FindOwned(ctx, id, ownerID)
	if !found || err != nil {
		return nil, found, err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	item := m.itemLocked(*t)
	return &item, true, nil
}

func (m memTickets) ListByProject(_ context.Context, projectID, ownerID string) ([]domain.Ticket, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range m.db.tickets {
		if t.ProjectID == projectID && t.UserID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m memTickets) Create(_ context.Context, t domain.Ticket) (*domain.Ticket, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.db.tickets[t.ID] = t
	return &t, nil
}

func (m memTickets) Update(_ context.Context, t domain.Ticket) (*domain.Ticket, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	t.UpdatedAt = time.Now()
	m.db.tickets[t.ID] = t
	return &t, nil
}

func (m memTickets) Delete(_ context.Context, id, ownerID string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	t, ok := m.db.tickets[id]
	if !ok || t.UserID != ownerID {
		return false, nil
	}
	delete(m.db.tickets, id)
	return true, nil
}

func (m memTickets) Stats(_ context.Context, ownerID string) (*domain.TicketStats, error) {
	if m.db.onStats != nil {
		m.db.onStats()
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.statsCalls++

	byStatus := map[domain.TicketStatus]int{}
	for _, t := range m.db.tickets {
		if t.UserID == ownerID {
			byStatus[t.Status]++
		}
	}
	stats := &domain.TicketStats{ByStatus: []domain.StatusCount{}, ByPriority: []domain.PriorityCount{}, ByType: []domain.TypeCount{}}
	for s, n := range byStatus {
		stats.ByStatus = append(stats.ByStatus, domain.StatusCount{Status: s, Count: n})
	}
	return stats, nil
}

type memUsers struct{ db *memDB }

func (m memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if u.Email == domain.NormalizeEmail(email) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memUsers) FindByProviderID(_ context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if u.Provider == provider && u.ProviderID != nil && *u.ProviderID == providerID {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.db.users[u.ID] = u
	return &u, nil
}

// memStats is a StatsCache that records invalidations. Like the Redis
// cache it keys entries by generation, so a write made under a stale
// generation is never read back.
type memStats struct {
	mu          sync.Mutex
	generations map[string]cache.Generation
	entries     map[string]*domain.TicketStats
	invalidated []string
}

func newMemStats() *memStats {
	return &memStats{
		generations: map[string]cache.Generation{},
		entries:     map[string]*domain.TicketStats{},
	}
}

func memStatsKey(ownerID string, gen cache.Generation) string {
	return fmt.Sprintf("%s:%d", ownerID, gen)
}

func (c *memStats) Get(_ context.Context, ownerID string) (*domain.TicketStats, cache.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.generations[ownerID]
	return c.entries[memStatsKey(ownerID, gen)], gen, nil
}

func (c *memStats) Set(_ context.Context, ownerID string, gen cache.Generation, stats *domain.TicketStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[memStatsKey(ownerID, gen)] = stats
	return nil
}

func (c *memStats) Invalidate(_ context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[ownerID]++
	c.invalidated = append(c.invalidated, ownerID)
	return nil
}
