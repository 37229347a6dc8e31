package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/userauth-app/authclient/internal/auth"
)

// RequestIDHeader correlates both attempts of one logical request
const RequestIDHeader = "X-Request-ID"

// RequestSpec describes one logical request. It is never mutated by the
// pipeline, so the same spec can be resent.
type RequestSpec struct {
	Method  string
	Path    string
	Body    any
	Query   map[string]string
	Headers map[string]string

	// Result, when non-nil, receives the decoded JSON body of a 2xx response
	Result any

	// NoRefresh disables 401 recovery (login, refresh, logout, register)
	NoRefresh bool

	// Credential overrides the session credential for the first attempt
	Credential string
}

// Pipeline attaches the access credential to each request and recovers a
// single 401 per request through the Coordinator.
type Pipeline struct {
	http        *resty.Client
	session     Session
	coordinator *Coordinator
	logger      zerolog.Logger
}

// NewPipeline creates a pipeline over an already configured resty client
func NewPipeline(httpClient *resty.Client, sess Session, coordinator *Coordinator, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		http:        httpClient,
		session:     sess,
		coordinator: coordinator,
		logger:      logger.With().Str("component", "pipeline").Logger(),
	}
}

// Send dispatches spec. A 401 on the first attempt triggers (or joins) a
// refresh and the request is resent exactly once with the new credential.
// Every other failure, including a 401 on the resend, is returned as an
// *auth.Error.
func (p *Pipeline) Send(ctx context.Context, spec *RequestSpec) (*resty.Response, error) {
	if spec == nil {
		return nil, auth.NewError(auth.KindRequest, 0, "request spec is required", nil)
	}
	if spec.Method == "" {
		spec = withMethod(spec, http.MethodGet)
	}

	requestID := uuid.NewString()
	credential := spec.Credential
	if credential == "" {
		credential = p.session.AccessCredential()
	}

	res, err := p.attempt(ctx, spec, credential, 0, requestID)
	if err == nil || spec.NoRefresh || auth.KindOf(err) != auth.KindUnauthenticated {
		return res, err
	}

	fresh, rerr := p.coordinator.Refresh(ctx, credential)
	if rerr != nil {
		return res, rerr
	}
	return p.attempt(ctx, spec, fresh, 1, requestID)
}

func (p *Pipeline) attempt(ctx context.Context, spec *RequestSpec, credential string, attempt int, requestID string) (*resty.Response, error) {
	req := p.http.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID)
	if credential != "" {
		req.SetAuthToken(credential)
	}
	if spec.Body != nil {
		req.SetBody(spec.Body)
	}
	if len(spec.Query) > 0 {
		req.SetQueryParams(spec.Query)
	}
	if len(spec.Headers) > 0 {
		req.SetHeaders(spec.Headers)
	}

	start := time.Now()
	res, err := req.Execute(spec.Method, spec.Path)
	event := p.logger.Debug().
		Str("method", spec.Method).
		Str("path", spec.Path).
		Int("attempt", attempt).
		Str("request_id", requestID).
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("Request failed")
		return res, transportError(err)
	}
	event.Int("status", res.StatusCode()).Msg("Request completed")

	if res.IsError() {
		return res, statusError(res)
	}
	if spec.Result != nil && len(res.Body()) > 0 {
		if err := json.Unmarshal(res.Body(), spec.Result); err != nil {
			return res, auth.NewError(auth.KindServer, res.StatusCode(), "malformed response body",
				fmt.Errorf("failed to decode response: %w", err))
		}
	}
	return res, nil
}

func withMethod(spec *RequestSpec, method string) *RequestSpec {
	cp := *spec
	cp.Method = method
	return &cp
}
