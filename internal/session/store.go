// Package session owns the authentication state of one client: status,
// signed-in user, and access credential. The Store is the only writer of
// that state and the Session the HTTP pipeline mutates during refresh.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/userauth-app/authclient/internal/auth"
	"github.com/userauth-app/authclient/internal/client"
	"github.com/userauth-app/authclient/internal/tokenstore"
)

// Store holds session truth. Create it with New; the zero value is unusable.
type Store struct {
	mu            sync.RWMutex
	status        auth.Status
	user          *auth.User
	token         string
	gen           uint64
	bootstrapping bool

	// persistMu orders writes to persist; taken before mu, never after
	persistMu sync.Mutex

	persist tokenstore.Store
	api     *client.Client
	logger  zerolog.Logger

	watchMu  sync.Mutex
	watchers map[int]chan auth.Snapshot
	nextID   int
}

// New creates an anonymous Store whose requests go through an API client
// built from cfg. Nothing is read from persist until Bootstrap.
func New(cfg client.Config, persist tokenstore.Store, logger zerolog.Logger) (*Store, error) {
	if persist == nil {
		return nil, errors.New("session: token store is required")
	}

	s := &Store{
		status:   auth.StatusAnonymous,
		persist:  persist,
		logger:   logger.With().Str("component", "session").Logger(),
		watchers: make(map[int]chan auth.Snapshot),
	}

	api, err := client.New(cfg, s, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	s.api = api
	return s, nil
}

// Client returns the API client bound to this session
func (s *Store) Client() *client.Client {
	return s.api
}

// AccessCredential returns the current access credential, "" when anonymous
func (s *Store) AccessCredential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Status returns the current status
func (s *Store) Status() auth.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// User returns a copy of the signed-in user, nil when anonymous
func (s *Store) User() *auth.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// Snapshot returns a point-in-time copy of the session
func (s *Store) Snapshot() auth.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() auth.Snapshot {
	return auth.Snapshot{
		Status:        s.status,
		User:          copyUser(s.user),
		HasCredential: s.token != "",
	}
}

// Generation identifies the current session. It changes on every sign-in
// and sign-out, never on a refresh.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// BeginRefresh marks an authenticated session as refreshing and returns its
// generation. Other states are left alone: a refresh during bootstrap stays
// "authenticating".
func (s *Store) BeginRefresh() uint64 {
	s.mu.Lock()
	gen := s.gen
	changed := s.status == auth.StatusAuthenticated
	if changed {
		s.status = auth.StatusRefreshing
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return gen
}

// SetAccessCredential installs a new access credential in memory and in
// persistence and moves the session to authenticated. The user is untouched.
func (s *Store) SetAccessCredential(token string) error {
	_, err := s.setAccessCredential(token, func() bool { return true })
	return err
}

// SetAccessCredentialIf is SetAccessCredential for a refresh started at gen.
// It does nothing once the session has been ended or replaced.
func (s *Store) SetAccessCredentialIf(gen uint64, token string) (bool, error) {
	return s.setAccessCredential(token, func() bool { return s.gen == gen })
}

func (s *Store) setAccessCredential(token string, current func() bool) (bool, error) {
	if token == "" {
		return false, auth.NewError(auth.KindValidationFailed, 0, "access credential must not be empty", nil)
	}

	s.persistMu.Lock()
	s.mu.Lock()
	if !current() {
		s.mu.Unlock()
		s.persistMu.Unlock()
		return false, nil
	}
	s.token = token
	s.status = auth.StatusAuthenticated
	s.mu.Unlock()
	err := s.persist.Save(token)
	s.persistMu.Unlock()

	s.notify()
	if err != nil {
		return true, fmt.Errorf("failed to persist access credential: %w", err)
	}
	return true, nil
}

// ExpireIf silently ends the session a refresh started at gen belongs to.
// A session that was already ended or replaced is left alone.
func (s *Store) ExpireIf(gen uint64) (uint64, bool) {
	after, ended := s.clearIf(func() bool { return s.gen == gen })
	if ended {
		s.logger.Info().Msg("Session expired")
	}
	return after, ended
}

// Login authenticates with email and password. On any failure the session
// is left exactly as it was.
func (s *Store) Login(ctx context.Context, creds auth.Credentials) (*auth.User, error) {
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Login rejected")
		return nil, err
	}

	user := resp.User
	if user == nil {
		user, err = s.api.ConfirmCredential(ctx, resp.AccessToken)
		if err != nil {
			return nil, err
		}
	}

	s.persistMu.Lock()
	s.mu.Lock()
	s.gen++
	s.token = resp.AccessToken
	s.user = copyUser(user)
	s.status = auth.StatusAuthenticated
	s.mu.Unlock()
	perr := s.persist.Save(resp.AccessToken)
	s.persistMu.Unlock()

	if perr != nil {
		s.logger.Warn().Err(perr).Msg("Failed to persist access credential")
	}
	s.logger.Info().Str("user_id", user.ID).Msg("Signed in")
	s.notify()
	return copyUser(user), nil
}

// Logout ends the session. Unless opts.Silent, the backend is asked to
// revoke the refresh credential first; that call's failure is ignored.
// Logout never fails. A refresh still in flight is discarded.
func (s *Store) Logout(ctx context.Context, opts auth.LogoutOptions) {
	if !opts.Silent {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("Backend logout failed, clearing local session anyway")
		}
	}
	s.clear()
	s.logger.Info().Bool("silent", opts.Silent).Msg("Signed out")
}

// clear resets to anonymous and drops the persisted credential
func (s *Store) clear() {
	s.clearIf(func() bool { return true })
}

// clearIf resets to anonymous when current holds, checked under the lock.
// It returns the generation afterwards and whether it reset anything.
func (s *Store) clearIf(current func() bool) (uint64, bool) {
	s.persistMu.Lock()
	s.mu.Lock()
	if !current() {
		gen := s.gen
		s.mu.Unlock()
		s.persistMu.Unlock()
		return gen, false
	}
	s.gen++
	gen := s.gen
	s.token = ""
	s.user = nil
	s.status = auth.StatusAnonymous
	s.mu.Unlock()
	err := s.persist.Delete()
	s.persistMu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to delete persisted credential")
	}
	s.notify()
	return gen, true
}

// UpdateProfile edits the profile on the backend and mirrors the change
// into the signed-in user
func (s *Store) UpdateProfile(ctx context.Context, req auth.UpdateProfileRequest) (*auth.User, error) {
	updated, err := s.api.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.user != nil {
		u := *s.user
		u.Name = updated.Name
		u.Mobile = updated.Mobile
		if !updated.UpdatedAt.IsZero() {
			u.UpdatedAt = updated.UpdatedAt
		}
		s.user = &u
	}
	current := copyUser(s.user)
	s.mu.Unlock()

	s.notify()
	return current, nil
}

// DeleteAccount removes the account and ends the session without a
// further backend call
func (s *Store) DeleteAccount(ctx context.Context) error {
	if err := s.api.DeleteAccount(ctx); err != nil {
		return err
	}
	s.Logout(ctx, auth.LogoutOptions{Silent: true})
	return nil
}

func copyUser(u *auth.User) *auth.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
