// Package client is the authenticated HTTP layer: every call goes through a
// Pipeline that attaches the access credential, and credential expiry is
// recovered through a single shared refresh managed by a Coordinator.
package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every HTTP call, refresh included
const DefaultTimeout = 10 * time.Second

// Session is the part of session state the pipeline reads and the refresh
// coordinator mutates. Implementations must be safe for concurrent use.
//
// The generation identifies one signed-in (or anonymous) session and changes
// whenever it is replaced or ended. A refresh only touches the session it
// started in.
type Session interface {
	AccessCredential() string
	Generation() uint64

	// BeginRefresh marks the start of a refresh and returns the current generation
	BeginRefresh() uint64

	// SetAccessCredentialIf installs token if the session is still at gen
	// and reports whether it did
	SetAccessCredentialIf(gen uint64, token string) (bool, error)

	// ExpireIf silently ends the session if it is still at gen. It returns
	// the generation afterwards and whether the session was ended.
	ExpireIf(gen uint64) (uint64, bool)
}

// Config is the explicit construction-time configuration of a Client
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// Transport overrides the default round tripper, mainly for tests
	Transport http.RoundTripper
}

// Client represents an HTTP client for the auth API
type Client struct {
	http        *resty.Client
	pipeline    *Pipeline
	coordinator *Coordinator
	logger      zerolog.Logger
}

// New creates a new API client bound to sess. The underlying resty client
// keeps a cookie jar, which carries the refresh cookie between calls.
func New(cfg Config, sess Session, logger zerolog.Logger) (*Client, error) {
	if sess == nil {
		return nil, errors.New("client: session is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("client: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.Transport != nil {
		httpClient.SetTransport(cfg.Transport)
	}

	c := &Client{
		http:   httpClient,
		logger: logger.With().Str("component", "client").Logger(),
	}
	c.coordinator = NewCoordinator(c.refreshAccessToken, sess, logger)
	c.pipeline = NewPipeline(httpClient, sess, c.coordinator, logger)
	return c, nil
}

// Send issues an authenticated request through the pipeline
func (c *Client) Send(ctx context.Context, spec *RequestSpec) (*resty.Response, error) {
	return c.pipeline.Send(ctx, spec)
}

// Pipeline returns the request pipeline
func (c *Client) Pipeline() *Pipeline {
	return c.pipeline
}

// Coordinator returns the refresh coordinator
func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// refreshAccessToken is the refresh operation handed to the coordinator
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	resp, err := c.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}
