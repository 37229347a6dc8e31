package session

import (
	"context"
	"errors"
	"sync"

	"github.com/userauth-app/authclient/internal/auth"
	"github.com/userauth-app/authclient/internal/tokenstore"
)

// Bootstrap recovers a session from the persisted credential. The backend
// must confirm it through /auth/me; that call goes through the pipeline, so
// an expired credential is recovered with the refresh cookie. Any failure
// leaves the session anonymous with nothing persisted. Bootstrap never
// returns an error. It only runs on an anonymous store, and a second call
// while one is running returns at once.
func (s *Store) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	if s.bootstrapping {
		s.mu.Unlock()
		s.logger.Warn().Msg("Bootstrap already in progress, ignoring")
		return
	}
	if s.status != auth.StatusAnonymous {
		status := s.status
		s.mu.Unlock()
		s.logger.Debug().Str("status", string(status)).Msg("Session already established, skipping bootstrap")
		return
	}
	s.bootstrapping = true
	s.status = auth.StatusAuthenticating
	gen := s.gen
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		s.bootstrapping = false
		s.mu.Unlock()
	}()

	// a sign-in racing the bootstrap wins; only reset our own attempt
	abandon := func() {
		s.clearIf(func() bool { return s.gen == gen })
	}

	persisted, err := s.persist.Load()
	if err != nil {
		if !errors.Is(err, tokenstore.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Failed to read persisted credential")
		}
		abandon()
		return
	}
	if persisted == "" {
		abandon()
		return
	}

	user, err := s.api.Me(ctx, persisted)
	if err != nil {
		s.logger.Info().Err(err).Msg("Persisted session could not be confirmed")
		abandon()
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug().Msg("Session changed during bootstrap, keeping it")
		return
	}
	// a refresh during the /auth/me call already installed a newer credential
	if s.token == "" {
		s.token = persisted
	}
	s.user = copyUser(user)
	s.status = auth.StatusAuthenticated
	s.mu.Unlock()

	s.logger.Info().Str("user_id", user.ID).Msg("Session restored")
	s.notify()
}

// Sequencer runs Bootstrap once per process
type Sequencer struct {
	once  sync.Once
	store *Store
}

// NewSequencer creates a sequencer for store
func NewSequencer(store *Store) *Sequencer {
	return &Sequencer{store: store}
}

// Run bootstraps the store on the first call and returns the session
// snapshot. Later calls only return the snapshot.
func (q *Sequencer) Run(ctx context.Context) auth.Snapshot {
	q.once.Do(func() {
		q.store.Bootstrap(ctx)
	})
	return q.store.Snapshot()
}
