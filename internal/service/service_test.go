package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

const (
	alice = "11111111-1111-4111-8111-111111111111"
	bob   = "22222222-2222-4222-8222-222222222222"
)

type fixture struct {
	db       *memDB
	stats    *memStats
	clients  *ClientService
	projects *ProjectService
	tickets  *TicketService
}

func newFixture() *fixture {
	db := newMemDB()
	stats := newMemStats()
	cs, ps, ts := memClients{db}, memProjects{db}, memTickets{db}
	return &fixture{
		db:       db,
		stats:    stats,
		clients:  NewClientService(cs, ps, stats),
		projects: NewProjectService(ps, cs, ts, stats),
		tickets:  NewTicketService(ts, ps, stats),
	}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) client(t *testing.T, owner, email string) *domain.Client {
	t.Helper()
	c, err := f.clients.Create(context.Background(), owner, domain.Client{Name: "Acme", Email: email, Company: "Acme Corp"})
	require.NoError(t, err)
	return c
}

func (f *fixture) project(t *testing.T, owner, clientID string) *domain.ProjectListItem {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner, domain.Project{Title: "Website", ClientID: clientID})
	require.NoError(t, err)
	return p
}

func firstPage() listing.Params {
	return listing.Params{Page: listing.PageRequest{Page: 1, Limit: 10}}
}

func TestClientService_Create(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := f.client(t, alice, "  Info@Acme.TEST ")
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, alice, c.UserID)
	assert.Equal(t, "info@acme.test", c.Email)

	t.Run("duplicate email across owners is a conflict", func(t *testing.T) {
		_, err := f.clients.Create(ctx, bob, domain.Client{Name: "Other", Email: "INFO@acme.test", Company: "Other"})
		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "Client with this email already exists", conflict.Message)
	})
}

func TestClientService_Update(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a := f.client(t, alice, "a@example.com")
	f.client(t, alice, "b@example.com")

	t.Run("email held by another client", func(t *testing.T) {
		_, err := f.clients.Update(ctx, alice, a.ID, domain.ClientPatch{Email: ptr("B@example.com")})
		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "Email already in use", conflict.Message)
	})

	t.Run("keeping own email is fine", func(t *testing.T) {
		got, err := f.clients.Update(ctx, alice, a.ID, domain.ClientPatch{Email: ptr("a@example.com"), City: ptr("Oslo")})
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Name)
		require.NotNil(t, got.City)
		assert.Equal(t, "Oslo", *got.City)
	})

	t.Run("other owner sees not found", func(t *testing.T) {
		_, err := f.clients.Update(ctx, bob, a.ID, domain.ClientPatch{Name: ptr("Hijack")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestClientService_GetAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := f.client(t, alice, "a@example.com")
	p := f.project(t, alice, c.ID)
	_, err := f.tickets.Create(ctx, alice, domain.Ticket{Title: "Bug", ProjectID: p.ID})
	require.NoError(t, err)

	detail, err := f.clients.Get(ctx, alice, c.ID)
	require.NoError(t, err)
	require.Len(t, detail.Projects, 1)
	assert.Equal(t, 1, detail.Projects[0].TicketCount)

	_, err = f.clients.Get(ctx, bob, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.clients.Delete(ctx, bob, c.ID), domain.ErrNotFound)
	require.NoError(t, f.clients.Delete(ctx, alice, c.ID))

	page, err := f.tickets.List(ctx, alice, domain.TicketFilter{}, firstPage())
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)
	assert.Contains(t, f.stats.invalidated, alice)
}

func TestClientService_List(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		f.client(t, alice, email)
	}
	f.client(t, bob, "d@example.com")

	page, err := f.clients.List(ctx, alice, domain.ClientFilter{}, listing.Params{Page: listing.PageRequest{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, listing.Pagination{Page: 2, Limit: 2, Total: 3, TotalPages: 2, HasNext: false, HasPrev: true}, page.Pagination)

	page, err = f.clients.List(ctx, alice, domain.ClientFilter{}, listing.Params{Page: listing.PageRequest{Page: 1, Limit: 10}, Search: "B@EXAMPLE"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "b@example.com", page.Data[0].Email)
}

func TestProjectService_Create(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	mine := f.client(t, alice, "a@example.com")
	theirs := f.client(t, bob, "b@example.com")

	t.Run("defaults status and returns client summary", func(t *testing.T) {
		p := f.project(t, alice, mine.ID)
		assert.Equal(t, domain.ProjectStatusActive, p.Status)
		assert.Equal(t, "Acme Corp", p.Client.Company)
	})

	t.Run("client of another owner", func(t *testing.T) {
		_, err := f.projects.Create(ctx, alice, domain.Project{Title: "Nope", ClientID: theirs.ID})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []domain.FieldError{{Field: "clientId", Message: "Invalid client ID"}}, verr.Fields)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := f.projects.Create(ctx, alice, domain.Project{Title: "Nope", ClientID: "missing"})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	page, err := f.projects.List(ctx, alice, domain.ProjectFilter{}, firstPage())
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total, "failed creates must not leave records behind")
}

func TestProjectService_Update(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c1 := f.client(t, alice, "a@example.com")
	c2 := f.client(t, alice, "b@example.com")
	foreign := f.client(t, bob, "c@example.com")
	p := f.project(t, alice, c1.ID)

	got, err := f.projects.Update(ctx, alice, p.ID, domain.ProjectPatch{
		Status:   ptr(domain.ProjectStatusOnHold),
		Budget:   ptr(1200.0),
		ClientID: &c2.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusOnHold, got.Status)
	assert.Equal(t, "Website", got.Title)
	assert.Equal(t, c2.ID, got.Client.ID)

	_, err = f.projects.Update(ctx, alice, p.ID, domain.ProjectPatch{ClientID: &foreign.ID})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.projects.Update(ctx, bob, p.ID, domain.ProjectPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_GetAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := f.client(t, alice, "a@example.com")
	p := f.project(t, alice, c.ID)
	_, err := f.tickets.Create(ctx, alice, domain.Ticket{Title: "One", ProjectID: p.ID})
	require.NoError(t, err)

	detail, err := f.projects.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Tickets, 1)
	assert.Equal(t, "Acme", detail.Client.Name)

	require.NoError(t, f.projects.Delete(ctx, alice, p.ID))
	_, err = f.projects.Get(ctx, alice, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.db.tickets)
}

func TestTicketService_Create(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := f.client(t, alice, "a@example.com")
	p := f.project(t, alice, c.ID)

	ticket, err := f.tickets.Create(ctx, alice, domain.Ticket{Title: "Crash", ProjectID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketTypeTask, ticket.Type)
	assert.Equal(t, "Website", ticket.Project.Title)
	assert.Equal(t, "Acme Corp", ticket.Project.Client.Company)

	_, err = f.tickets.Create(ctx, bob, domain.Ticket{Title: "Crash", ProjectID: p.ID})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "projectId", verr.Fields[0].Field)
	assert.Equal(t, "Invalid project ID", verr.Fields[0].Message)
}

func TestTicketService_UpdateAndFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := f.client(t, alice, "a@example.com")
	p := f.project(t, alice, c.ID)
	tk, err := f.tickets.Create(ctx, alice, domain.Ticket{Title: "Crash", ProjectID: p.ID, Priority: domain.TicketPriorityLow})
	require.NoError(t, err)

	got, err := f.tickets.Update(ctx, alice, tk.ID, domain.TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, got.Status)
	assert.Equal(t, domain.TicketPriorityLow, got.Priority)

	resolved := domain.TicketStatusResolved
	page, err := f.tickets.List(ctx, alice, domain.TicketFilter{Status: &resolved}, firstPage())
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	open := domain.TicketStatusOpen
	page, err = f.tickets.List(ctx, alice, domain.TicketFilter{Status: &open}, firstPage())
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)

	require.NoError(t, f.tickets.Delete(ctx, alice, tk.ID))
	assert.ErrorIs(t, f.tickets.Delete(ctx, alice, tk.ID), domain.ErrNotFound)
}

func TestTicketService_StatsCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := f.client(t, alice, "a@example.com")
	p := f.project(t, alice, c.ID)
	_, err := f.tickets.Create(ctx, alice, domain.Ticket{Title: "One", ProjectID: p.ID})
	require.NoError(t, err)

	stats, err := f.tickets.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.StatusCount{{Status: domain.TicketStatusOpen, Count: 1}}, stats.ByStatus)

	_, err = f.tickets.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, f.db.statsCalls, "second read is served from the cache")

	_, err = f.tickets.Create(ctx, alice, domain.Ticket{Title: "Two", ProjectID: p.ID})
	require.NoError(t, err)

	stats, err = f.tickets.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, f.db.statsCalls)
	assert.Equal(t, 2, stats.ByStatus[0].Count)
}

func TestTicketService_StatsInvalidatedDuringLoad(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := f.client(t, alice, "a@example.com")
	p := f.project(t, alice, c.ID)
	_, err := f.tickets.Create(ctx, alice, domain.Ticket{Title: "One", ProjectID: p.ID})
	require.NoError(t, err)

	// A write lands between the cache miss and the cache fill.
	f.db.onStats = func() {
		f.db.onStats = nil
		require.NoError(t, f.stats.Invalidate(ctx, alice))
	}
	_, err = f.tickets.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, f.db.statsCalls)

	_, err = f.tickets.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, f.db.statsCalls, "the fill from before the invalidation is not served")

	_, err = f.tickets.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, f.db.statsCalls)
}
