package client

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/userauth-app/authclient/internal/auth"
)

// fakeSession is an in-memory Session that records the transitions it sees
type fakeSession struct {
	mu        sync.Mutex
	token     string
	persisted string
	status    auth.Status
	gen       uint64
	refreshes int
	logouts   []auth.LogoutOptions
}

func newFakeSession(token string) *fakeSession {
	s := &fakeSession{token: token, persisted: token, status: auth.StatusAnonymous}
	if token != "" {
		s.status = auth.StatusAuthenticated
	}
	return s
}

func (s *fakeSession) AccessCredential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *fakeSession) BeginRefresh() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.status == auth.StatusAuthenticated {
		s.status = auth.StatusRefreshing
	}
	return s.gen
}

// SetAccessCredential installs token unconditionally, like a fresh login
func (s *fakeSession) SetAccessCredential(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.persisted = token
	s.status = auth.StatusAuthenticated
	return nil
}

func (s *fakeSession) SetAccessCredentialIf(gen uint64, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false, nil
	}
	s.token = token
	s.persisted = token
	s.status = auth.StatusAuthenticated
	return true, nil
}

func (s *fakeSession) ExpireIf(gen uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return s.gen, false
	}
	s.end(auth.LogoutOptions{Silent: true})
	return s.gen, true
}

// Logout ends the session the way a user sign-out does
func (s *fakeSession) Logout(opts auth.LogoutOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end(opts)
}

func (s *fakeSession) end(opts auth.LogoutOptions) {
	s.token = ""
	s.persisted = ""
	s.status = auth.StatusAnonymous
	s.gen++
	s.logouts = append(s.logouts, opts)
}

func (s *fakeSession) state() (token, persisted string, status auth.Status, logouts []auth.LogoutOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.persisted, s.status, append([]auth.LogoutOptions(nil), s.logouts...)
}

func newTestClient(t *testing.T, baseURL string, sess Session, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Timeout: timeout}, sess, zerolog.Nop())
	require.NoError(t, err)
	return c
}
