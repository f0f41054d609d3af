package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/consultdesk/internal/apiclient"
	"github.com/sumire/consultdesk/internal/domain"
	"github.com/sumire/consultdesk/internal/listing"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func signedIn() *Session {
	s := NewSession()
	s.SignIn(&apiclient.AuthResponse{
		User:   domain.User{ID: "u1", Email: "alice@example.com"},
		Tokens: apiclient.TokenPair{AccessToken: "tok", RefreshToken: "ref"},
	})
	return s
}

// pagedServer serves n records of each collection, honouring page and limit.
type pagedServer struct {
	mu       sync.Mutex
	counts   map[string]int
	requests map[string]int
	status   int
}

func newPagedServer(t *testing.T, counts map[string]int) (*pagedServer, *httptest.Server) {
	t.Helper()

	ps := &pagedServer{counts: counts, requests: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(ps.serve))
	t.Cleanup(srv.Close)
	return ps, srv
}

func (ps *pagedServer) serve(w http.ResponseWriter, r *http.Request) {
	ps.mu.Lock()
	ps.requests[r.URL.Path]++
	status := ps.status
	ps.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":{"code":"unauthorized","message":"Authentication is required"}}`)
		return
	}
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	req := listing.ParsePage(q.Get("page"), q.Get("limit"))
	total := ps.counts[r.URL.Path]

	var data []map[string]any
	for i := req.Skip(); i < min(total, req.Skip()+req.Limit); i++ {
		data = append(data, map[string]any{"id": fmt.Sprintf("%s-%d", r.URL.Path, i)})
	}
	_ = json.NewEncoder(w).Encode(listing.NewPage(data, total, req))
}

func TestLoader_PagesThroughEverything(t *testing.T) {
	ps, srv := newPagedServer(t, map[string]int{
		"/api/clients":  3,
		"/api/projects": 250,
		"/api/tickets":  100,
	})
	session := signedIn()
	loader := NewLoader(apiclient.New(srv.URL, session), session)

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, snap.Clients, 3)
	assert.Len(t, snap.Projects, 250)
	assert.Len(t, snap.Tickets, 100)
	assert.Equal(t, "/api/projects-249", snap.Projects[249].ID)

	assert.Equal(t, 1, ps.requests["/api/clients"])
	assert.Equal(t, 3, ps.requests["/api/projects"])
	assert.Equal(t, 1, ps.requests["/api/tickets"])
}

func TestLoader_UsesCache(t *testing.T) {
	ps, srv := newPagedServer(t, map[string]int{"/api/clients": 1})
	session := signedIn()
	loader := NewLoader(apiclient.New(srv.URL, session), session)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, ps.requests["/api/clients"])

	_, err = loader.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ps.requests["/api/clients"])
}

func TestLoader_UnauthorizedClearsSession(t *testing.T) {
	ps, srv := newPagedServer(t, nil)
	ps.status = http.StatusUnauthorized
	session := signedIn()
	loader := NewLoader(apiclient.New(srv.URL, session), session)

	_, err := loader.Load(context.Background())

	require.ErrorIs(t, err, apiclient.ErrUnauthenticated)
	assert.False(t, IsCanceled(err))
	assert.False(t, session.Authenticated())
	assert.Nil(t, session.User())

	_, err = loader.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestLoader_NotSignedIn(t *testing.T) {
	loader := NewLoader(apiclient.New("http://127.0.0.1:1", nil), NewSession())

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

// blockingAPI blocks every call until its context ends.
type blockingAPI struct {
	started atomic.Int32
}

func block[T any](ctx context.Context, b *blockingAPI) (*listing.Page[T], error) {
	b.started.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingAPI) ListClients(ctx context.Context, _ apiclient.ListOptions) (*listing.Page[domain.ClientListItem], error) {
	return block[domain.ClientListItem](ctx, b)
}

func (b *blockingAPI) ListProjects(ctx context.Context, _ apiclient.ListOptions) (*listing.Page[domain.ProjectListItem], error) {
	return block[domain.ProjectListItem](ctx, b)
}

func (b *blockingAPI) ListTickets(ctx context.Context, _ apiclient.ListOptions) (*listing.Page[domain.TicketListItem], error) {
	return block[domain.TicketListItem](ctx, b)
}

func TestLoader_Canceled(t *testing.T) {
	api := &blockingAPI{}
	session := signedIn()
	loader := NewLoader(api, session)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return api.started.Load() == 3 }, timeout, tick)
	cancel()

	err := <-done
	assert.True(t, IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation is not a failure: the session survives and nothing is cached.
	assert.True(t, session.Authenticated())
	_, ok := session.Snapshot()
	assert.False(t, ok)
}

// failingAPI fails one collection and blocks the others.
type failingAPI struct {
	blockingAPI
}

func (f *failingAPI) ListTickets(context.Context, apiclient.ListOptions) (*listing.Page[domain.TicketListItem], error) {
	return nil, &apiclient.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
}

func TestLoader_FailureIsNotCancel(t *testing.T) {
	loader := NewLoader(&failingAPI{}, signedIn())

	_, err := loader.Load(context.Background())

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.False(t, IsCanceled(err))
}

func TestFetchAll_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	list := func(_ context.Context, opts apiclient.ListOptions) (*listing.Page[int], error) {
		calls++
		assert.Equal(t, calls, opts.Page)
		assert.Equal(t, "createdAt", opts.SortBy)
		assert.Equal(t, "desc", opts.SortOrder)
		// A server that always claims another page.
		if calls > 2 {
			return &listing.Page[int]{Pagination: listing.Pagination{HasNext: true}}, nil
		}
		return &listing.Page[int]{Data: []int{calls}, Pagination: listing.Pagination{HasNext: true}}, nil
	}

	got, err := fetchAll(context.Background(), list, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 3, calls)
}

func TestSession_SignInDropsCache(t *testing.T) {
	s := signedIn()
	require.True(t, s.store(&Snapshot{}, "tok"))
	_, ok := s.Snapshot()
	require.True(t, ok)

	s.SignIn(&apiclient.AuthResponse{Tokens: apiclient.TokenPair{AccessToken: "other"}})
	_, ok = s.Snapshot()
	assert.False(t, ok)

	// A load that started under the old token is discarded.
	assert.False(t, s.store(&Snapshot{}, "tok"))
	assert.Equal(t, "other", s.Token())
}

func TestSession_SetTokensKeepsCache(t *testing.T) {
	s := signedIn()
	require.True(t, s.store(&Snapshot{}, "tok"))

	s.SetTokens(apiclient.TokenPair{AccessToken: "tok2", RefreshToken: "ref2"})

	_, ok := s.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, "ref2", s.RefreshToken())
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, IsCanceled(fmt.Errorf("wrapped: %w", ErrCanceled)))
	assert.False(t, IsCanceled(context.Canceled))
	assert.False(t, IsCanceled(errors.New("load dashboard: boom")))
}
