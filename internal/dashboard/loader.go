package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sumire/consultdesk/internal/apiclient"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
	"github.com/sumire/consultdesk/internal/logging"
)

// DefaultPageSize is the largest page the server hands out.
const DefaultPageSize = listing.MaxLimit

var (
	// ErrCanceled is returned when the caller's context ends mid-load. It
	// is distinct from a failed load.
	ErrCanceled = errors.New("dashboard load canceled")

	ErrNotSignedIn = errors.New("not signed in")
)

// IsCanceled reports whether err is a canceled load.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// API is the part of the REST client the loader uses.
type API interface {
	ListClients(ctx context.Context, opts apiclient.ListOptions) (*listing.Page[domain.ClientListItem], error)
	ListProjects(ctx context.Context, opts apiclient.ListOptions) (*listing.Page[domain.ProjectListItem], error)
	ListTickets(ctx context.Context, opts apiclient.ListOptions) (*listing.Page[domain.TicketListItem], error)
}

// Loader fills a Session's snapshot from the API.
type Loader struct {
	api      API
	session  *Session
	pageSize int
	now      func() time.Time
}

func NewLoader(api API, session *Session) *Loader {
	return &Loader{
		api:      api,
		session:  session,
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
}

// Load returns the cached snapshot, or fetches all three collections
// concurrently and caches the result. The collections are fetched
// independently and are not mutually consistent.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	if snap, ok := l.session.Snapshot(); ok {
		return snap, nil
	}
	token := l.session.Token()
	if token == "" {
		return nil, ErrNotSignedIn
	}

	logger := logging.FromContext(ctx)
	start := l.now()

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Clients, err = fetchAll(gctx, l.api.ListClients, l.pageSize)
		return err
	})
	g.Go(func() (err error) {
		snap.Projects, err = fetchAll(gctx, l.api.ListProjects, l.pageSize)
		return err
	})
	g.Go(func() (err error) {
		snap.Tickets, err = fetchAll(gctx, l.api.ListTickets, l.pageSize)
		return err
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		if errors.Is(err, apiclient.ErrUnauthenticated) {
			l.session.Invalidate()
		}
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	snap.LoadedAt = l.now()
	if !l.session.store(&snap, token) {
		logger.Debug("session changed during load, snapshot discarded")
	}
	logger.Debug("dashboard loaded",
		"clients", len(snap.Clients),
		"projects", len(snap.Projects),
		"tickets", len(snap.Tickets),
		"duration_ms", l.now().Sub(start).Milliseconds(),
	)
	return &snap, nil
}

// Reload drops the cached snapshot and loads again.
func (l *Loader) Reload(ctx context.Context) (*Snapshot, error) {
	l.session.ClearSnapshot()
	return l.Load(ctx)
}

type listFunc[T any] func(ctx context.Context, opts apiclient.ListOptions) (*listing.Page[T], error)

// fetchAll pages through a list endpoint, newest first, until the server
// reports no further page.
func fetchAll[T any](ctx context.Context, list listFunc[T], pageSize int) ([]T, error) {
	all := []T{}
	for page := 1; ; page++ {
		p, err := list(ctx, apiclient.ListOptions{
			Page:      page,
			Limit:     pageSize,
			SortBy:    listing.DefaultSortField,
			SortOrder: string(listing.Desc),
		})
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if !p.Pagination.HasNext || len(p.Data) == 0 {
			return all, nil
		}
	}
}
