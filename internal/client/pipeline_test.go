package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userauth-app/authclient/internal/auth"
)

const refreshCookie = "refresh_token"

// tokenServer answers /data with 200 only for the current access token and
// rotates it on /auth/refresh
type tokenServer struct {
	mu        sync.Mutex
	current   string
	next      string
	refreshOK bool

	staleHits   atomic.Int32
	freshHits   atomic.Int32
	refreshHits atomic.Int32
	requestIDs  []string

	// holdRefresh delays the refresh answer until this many stale hits were seen
	holdRefresh int32
}

func (s *tokenServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		current := s.current
		s.requestIDs = append(s.requestIDs, r.Header.Get(RequestIDHeader))
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+current {
			s.staleHits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
			return
		}
		s.freshHits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"value": "ok"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshHits.Add(1)
		deadline := time.Now().Add(2 * time.Second)
		for s.staleHits.Load() < s.holdRefresh && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}

		if _, err := r.Cookie(refreshCookie); err != nil || !s.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "refresh token expired"})
			return
		}
		s.mu.Lock()
		s.current = s.next
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(auth.TokenResponse{AccessToken: s.next, TokenType: "Bearer"})
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds auth.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "Secret#123" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid username or password !!"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: "rt-1", Path: "/", HttpOnly: true})
		s.mu.Lock()
		token := s.current
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(auth.TokenResponse{
			AccessToken: token,
			User:        &auth.User{ID: "u1", Email: creds.Email},
		})
	})
	return mux
}

// loginAndExpire signs in so the jar holds the refresh cookie, then rotates
// the server's token so the session credential is stale
func loginAndExpire(t *testing.T, c *Client, srv *tokenServer, sess *fakeSession) {
	t.Helper()
	resp, err := c.Login(context.Background(), auth.Credentials{Email: "a@example.com", Password: "Secret#123"})
	require.NoError(t, err)
	require.NoError(t, sess.SetAccessCredential(resp.AccessToken))

	srv.mu.Lock()
	srv.current = "expired-on-server"
	srv.mu.Unlock()
}

func TestConcurrentExpiryRefreshesOnce(t *testing.T) {
	srv := &tokenServer{current: "T1", next: "T2", refreshOK: true, holdRefresh: 5}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	sess := newFakeSession("")
	c := newTestClient(t, ts.URL, sess, 5*time.Second)
	loginAndExpire(t, c, srv, sess)
	require.Equal(t, "T1", sess.AccessCredential())

	var wg sync.WaitGroup
	errs := make([]error, 5)
	bodies := make([]map[string]string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out map[string]string
			_, errs[i] = c.Send(context.Background(), &RequestSpec{Path: "/data", Result: &out})
			bodies[i] = out
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "ok", bodies[i]["value"])
	}
	assert.Equal(t, int32(1), srv.refreshHits.Load())
	assert.Equal(t, int32(5), srv.staleHits.Load())
	assert.Equal(t, int32(5), srv.freshHits.Load())

	token, persisted, status, _ := sess.state()
	assert.Equal(t, "T2", token)
	assert.Equal(t, "T2", persisted)
	assert.Equal(t, auth.StatusAuthenticated, status)
}

func TestConcurrentExpiryRefreshFailure(t *testing.T) {
	srv := &tokenServer{current: "T1", next: "T2", refreshOK: false, holdRefresh: 5}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	sess := newFakeSession("")
	c := newTestClient(t, ts.URL, sess, 5*time.Second)
	loginAndExpire(t, c, srv, sess)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Send(context.Background(), &RequestSpec{Path: "/data"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, errs[i], auth.ErrRefreshFailed)
	}
	assert.Equal(t, int32(1), srv.refreshHits.Load())
	assert.Equal(t, int32(0), srv.freshHits.Load())

	token, persisted, status, logouts := sess.state()
	assert.Empty(t, token)
	assert.Empty(t, persisted)
	assert.Equal(t, auth.StatusAnonymous, status)
	require.Len(t, logouts, 1)
	assert.True(t, logouts[0].Silent)
}

func TestRetriesAtMostOnce(t *testing.T) {
	var dataHits, refreshHits atomic.Int32
	var ids sync.Map
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshHits.Add(1)
			_ = json.NewEncoder(w).Encode(auth.TokenResponse{AccessToken: "T2"})
		default:
			n := dataHits.Add(1)
			ids.Store(n, r.Header.Get(RequestIDHeader))
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer ts.Close()

	sess := newFakeSession("T1")
	c := newTestClient(t, ts.URL, sess, 5*time.Second)

	_, err := c.Send(context.Background(), &RequestSpec{Path: "/data"})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Equal(t, int32(2), dataHits.Load())
	assert.Equal(t, int32(1), refreshHits.Load())

	first, _ := ids.Load(int32(1))
	second, _ := ids.Load(int32(2))
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestNoRefreshPropagates401(t *testing.T) {
	var refreshHits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshHits.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, newFakeSession("T1"), 5*time.Second)
	_, err := c.Send(context.Background(), &RequestSpec{Method: http.MethodPost, Path: "/auth/logout", NoRefresh: true})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Equal(t, int32(0), refreshHits.Load())
}

func TestNon401ErrorsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, auth.ErrServer, "boom"},
		{"bad request", http.StatusBadRequest, `{"error":"name is required"}`, auth.ErrValidationFailed, "name is required"},
		{"forbidden", http.StatusForbidden, ``, auth.ErrRequest, "Forbidden"},
		{"not found", http.StatusNotFound, `not here`, auth.ErrRequest, "not here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c := newTestClient(t, ts.URL, newFakeSession("T1"), 5*time.Second)
			_, err := c.Send(context.Background(), &RequestSpec{Path: "/data"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var e *auth.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.message, e.Message)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestTimeoutIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL, newFakeSession("T1"), 50*time.Millisecond)
	_, err := c.Send(context.Background(), &RequestSpec{Path: "/slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTimeout)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := newTestClient(t, url, newFakeSession("T1"), time.Second)
	_, err := c.Send(context.Background(), &RequestSpec{Path: "/data"})
	assert.ErrorIs(t, err, auth.ErrNetwork)
}

func TestCredentialAttachment(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	sess := newFakeSession("")
	c := newTestClient(t, ts.URL, sess, time.Second)

	_, err := c.Send(context.Background(), &RequestSpec{Path: "/public"})
	require.NoError(t, err)

	require.NoError(t, sess.SetAccessCredential("T1"))
	_, err = c.Send(context.Background(), &RequestSpec{Path: "/private"})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), &RequestSpec{Path: "/private", Credential: "persisted"})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer T1", "Bearer persisted"}, seen)
}

func TestLoginErrors(t *testing.T) {
	srv := &tokenServer{current: "T1"}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	c := newTestClient(t, ts.URL, newFakeSession(""), time.Second)

	_, err := c.Login(context.Background(), auth.Credentials{Email: "a@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = c.Login(context.Background(), auth.Credentials{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, auth.ErrValidationFailed)

	_, err = c.Login(context.Background(), auth.Credentials{Email: "a@example.com"})
	assert.ErrorIs(t, err, auth.ErrValidationFailed)
}

func TestNewRequiresBaseURLAndSession(t *testing.T) {
	_, err := New(Config{}, newFakeSession(""), zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://localhost"}, nil, zerolog.Nop())
	assert.Error(t, err)
}
