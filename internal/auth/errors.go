package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to present it
type Kind string

const (
	KindUnauthenticated    Kind = "unauthenticated"
	KindRefreshFailed      Kind = "refresh_failed"
	KindValidationFailed   Kind = "validation_failed"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindNetwork            Kind = "network"
	KindTimeout            Kind = "timeout"
	KindServer             Kind = "server"
	KindRequest            Kind = "request"
)

var (
	// ErrUnauthenticated is a 401 from an authenticated call
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrRefreshFailed means the refresh endpoint rejected or errored; the session has been ended
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrValidationFailed is a request rejected by local or server-side validation
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidCredentials is a rejected login
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNetwork is a transport-level failure
	ErrNetwork = errors.New("network error")

	// ErrTimeout is a call that exceeded the configured timeout
	ErrTimeout = errors.New("request timed out")

	// ErrServer is a 5xx response
	ErrServer = errors.New("server error")

	// ErrRequest is any other non-success response
	ErrRequest = errors.New("request failed")
)

var sentinels = map[Kind]error{
	KindUnauthenticated:    ErrUnauthenticated,
	KindRefreshFailed:      ErrRefreshFailed,
	KindValidationFailed:   ErrValidationFailed,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindNetwork:            ErrNetwork,
	KindTimeout:            ErrTimeout,
	KindServer:             ErrServer,
	KindRequest:            ErrRequest,
}

// Error is the typed failure returned by every operation of this module
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Message string // server or validation message
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, msg)
	}
	if msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// NewError builds a typed error
func NewError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

// KindOf returns the kind of err, or "" when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
