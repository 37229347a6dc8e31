package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/userauth-app/authclient/internal/auth"
	"github.com/userauth-app/authclient/internal/client"
	"github.com/userauth-app/authclient/internal/tokenstore"
)

const testPassword = "Secret#123"

// fakeBackend is a scripted auth API: one user, one valid access token at
// a time, and a refresh cookie that is either honoured or not
type fakeBackend struct {
	mu           sync.Mutex
	access       string
	seq          int
	cookieValid  bool
	user         auth.User
	logoutStatus int
	meGate       chan struct{}
	refreshGate  chan struct{}

	// loginOmitsUser leaves the user out of the login response
	loginOmitsUser bool
	// rejectIssued makes the token handed out by login unusable
	rejectIssued bool

	// holdRefresh delays refresh answers until this many /data requests were rejected
	holdRefresh atomic.Int32

	meHits       atomic.Int32
	refreshHits  atomic.Int32
	logoutHits   atomic.Int32
	rejectedData atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user: auth.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: "USER", Provider: auth.ProviderLocal, Enabled: true},
	}
}

func (b *fakeBackend) issue() string {
	b.seq++
	b.access = fmt.Sprintf("T%d", b.seq)
	return b.access
}

// expire invalidates the current access token without touching the cookie
func (b *fakeBackend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = "expired"
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+b.access
}

func (b *fakeBackend) setRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "rt", Path: "/", HttpOnly: true})
	b.cookieValid = true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds auth.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		b.mu.Lock()
		defer b.mu.Unlock()
		if creds.Email != b.user.Email || creds.Password != testPassword {
			writeJSON(w, http.StatusUnauthorized, auth.MessageResponse{Message: "Invalid username or password !!"})
			return
		}
		b.setRefreshCookie(w)
		resp := auth.TokenResponse{AccessToken: b.issue(), TokenType: "Bearer"}
		if !b.loginOmitsUser {
			user := b.user
			resp.User = &user
		}
		if b.rejectIssued {
			b.access = "revoked"
		}
		writeJSON(w, http.StatusOK, resp)
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshHits.Add(1)
		b.mu.Lock()
		gate := b.refreshGate
		b.mu.Unlock()
		if gate != nil {
			<-gate
		}
		deadline := time.Now().Add(2 * time.Second)
		for b.rejectedData.Load() < b.holdRefresh.Load() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, err := r.Cookie("refresh_token"); err != nil || !b.cookieValid {
			writeJSON(w, http.StatusUnauthorized, auth.MessageResponse{Message: "Refresh token missing"})
			return
		}
		writeJSON(w, http.StatusOK, auth.TokenResponse{AccessToken: b.issue(), TokenType: "Bearer"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		b.meHits.Add(1)
		if b.meGate != nil {
			<-b.meGate
		}
		if !b.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, auth.MessageResponse{Message: "Unauthorized"})
			return
		}
		b.mu.Lock()
		user := b.user
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutHits.Add(1)
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.logoutStatus != 0 {
			w.WriteHeader(b.logoutStatus)
			return
		}
		b.cookieValid = false
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.setRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /auth/update-user-profile", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req auth.UpdateProfileRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.user.Name, b.user.Mobile = req.Name, req.Mobile
		b.user.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		user := b.user
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("DELETE /auth/delete-account", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, auth.MessageResponse{Message: "Account deleted"})
	})
	mux.HandleFunc("GET /data", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			b.rejectedData.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"value": "ok"})
	})
	return mux
}

func newTestStore(t *testing.T, backend *fakeBackend) (*Store, *tokenstore.MemoryStore) {
	t.Helper()
	ts := httptest.NewServer(backend.handler())
	t.Cleanup(ts.Close)

	persist := tokenstore.NewMemoryStore()
	store, err := New(client.Config{BaseURL: ts.URL, Timeout: 5 * time.Second}, persist, zerolog.Nop())
	require.NoError(t, err)
	return store, persist
}
