package client

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/userauth-app/authclient/internal/auth"
)

// RefreshFunc exchanges the refresh cookie for a new access credential
type RefreshFunc func(ctx context.Context) (string, error)

type outcome struct {
	token string
	err   error
}

// cycle records what the most recent refresh replaced, the session
// generation it left behind, and how it ended
type cycle struct {
	stale string
	gen   uint64
	outcome
}

// Coordinator guarantees at most one outstanding refresh per client.
// Callers arriving while a refresh is in flight are queued and released
// with the identical outcome once it resolves.
//
// The refresh call runs on a context detached from the triggering caller,
// bounded only by the transport timeout, so it always completes and always
// releases its waiters. A waiter whose own context ends returns ctx.Err()
// early; its buffered slot is simply never read.
type Coordinator struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan outcome
	last     *cycle

	refresh RefreshFunc
	session Session
	logger  zerolog.Logger
}

// NewCoordinator creates a coordinator that refreshes through fn
func NewCoordinator(fn RefreshFunc, sess Session, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		refresh: fn,
		session: sess,
		logger:  logger.With().Str("component", "refresh").Logger(),
	}
}

// Refresh returns a credential to replace stale, the credential a request
// was rejected with. It either starts a refresh, joins the one in flight, or,
// when stale was already replaced by the last completed cycle, returns that
// cycle's outcome without another network call.
func (c *Coordinator) Refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if c.inFlight {
		ch := make(chan outcome, 1)
		c.waiters = append(c.waiters, ch)
		queued := len(c.waiters)
		c.mu.Unlock()

		c.logger.Debug().Int("queued", queued).Msg("Waiting for in-flight refresh")
		select {
		case out := <-ch:
			return out.token, out.err
		case <-ctx.Done():
			return "", transportError(ctx.Err())
		}
	}
	if stale != "" && c.last != nil && c.last.stale == stale && c.last.gen == c.session.Generation() {
		out := c.last.outcome
		c.mu.Unlock()
		return out.token, out.err
	}
	c.inFlight = true
	c.mu.Unlock()

	out, gen, current := c.run(ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.last = nil
	if current {
		c.last = &cycle{stale: stale, gen: gen, outcome: out}
	}
	c.inFlight = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- out
	}
	c.logger.Debug().
		Int("released", len(waiters)).
		Bool("ok", out.err == nil).
		Msg("Refresh cycle resolved")
	return out.token, out.err
}

// InFlight reports whether a refresh is currently outstanding
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Waiting returns the number of callers queued behind the current refresh
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// run performs one refresh. It returns the outcome, the session generation
// the outcome belongs to, and false when the session changed underneath it.
func (c *Coordinator) run(ctx context.Context) (outcome, uint64, bool) {
	detached := context.WithoutCancel(ctx)
	gen := c.session.BeginRefresh()

	token, err := c.refresh(detached)
	if err == nil && token == "" {
		err = errors.New("refresh response carried no access token")
	}
	if err != nil {
		after, ended := c.session.ExpireIf(gen)
		if !ended {
			c.logger.Info().Err(err).Msg("Refresh failed after the session changed, discarding")
			return outcome{err: errSessionChanged()}, 0, false
		}
		c.logger.Warn().Err(err).Msg("Refresh failed, ending session")
		rerr := auth.NewError(auth.KindRefreshFailed, statusOf(err), "session expired, please sign in again", err)
		return outcome{err: rerr}, after, true
	}

	applied, err := c.session.SetAccessCredentialIf(gen, token)
	if !applied {
		c.logger.Info().Msg("Session changed during refresh, discarding new credential")
		return outcome{err: errSessionChanged()}, 0, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to store refreshed credential")
	}
	c.logger.Info().Msg("Access credential refreshed")
	return outcome{token: token}, gen, true
}

func errSessionChanged() *auth.Error {
	return auth.NewError(auth.KindRefreshFailed, 0, "session ended during refresh", nil)
}

func statusOf(err error) int {
	var e *auth.Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
