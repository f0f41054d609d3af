// Package dashboard loads a signed-in user's clients, projects and tickets
// and derives the figures shown on the dashboard.
package dashboard

import (
	"sync"
	"time"

	"github.com/sumire/consultdesk/internal/apiclient"
	"github.com/sumire/consultdesk/internal/domain"
)

// Snapshot is one load of the three collections. It is shared between
// readers and must not be modified.
type Snapshot struct {
	Clients  []domain.ClientListItem
	Projects []domain.ProjectListItem
	Tickets  []domain.TicketListItem
	LoadedAt time.Time
}

// Session holds the credentials and cached snapshot of one signed-in user.
// It satisfies apiclient.TokenStore, so a 401 from any call clears it.
type Session struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *domain.User
	snapshot     *Snapshot
}

var _ apiclient.TokenStore = (*Session)(nil)

func NewSession() *Session {
	return &Session{}
}

// SignIn stores the result of a login and drops any cached data from a
// previous user.
func (s *Session) SignIn(resp *apiclient.AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := resp.User
	s.user = &user
	s.accessToken = resp.Tokens.AccessToken
	s.refreshToken = resp.Tokens.RefreshToken
	s.snapshot = nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the refresh token of the current sign-in.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// SetTokens replaces the tokens after a refresh, keeping the cache.
func (s *Session) SetTokens(tokens apiclient.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Invalidate signs the user out and drops the cache. Called on logout and
// on any 401.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.snapshot = nil
}

// Snapshot returns the cached collections, if loaded.
func (s *Session) Snapshot() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.snapshot != nil
}

// ClearSnapshot forces the next load to go to the server.
func (s *Session) ClearSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
}

// store keeps snap unless the session was signed out while it loaded.
func (s *Session) store(snap *Snapshot, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessToken == "" || s.accessToken != token {
		return false
	}
	s.snapshot = snap
	return true
}
