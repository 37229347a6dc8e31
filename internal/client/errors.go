package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/userauth-app/authclient/internal/auth"
)

// maxMessageRunes caps a raw, non-JSON error body used as a message
const maxMessageRunes = 200

// errorBody covers the error shapes the backend returns
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// transportError classifies a failure that produced no HTTP response
func transportError(err error) *auth.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return auth.NewError(auth.KindTimeout, 0, "", err)
	}
	return auth.NewError(auth.KindNetwork, 0, "", err)
}

// statusError classifies a non-success response
func statusError(res *resty.Response) *auth.Error {
	status := res.StatusCode()
	msg := serverMessage(res.Body())
	if msg == "" {
		msg = http.StatusText(status)
	}

	var kind auth.Kind
	switch {
	case status == http.StatusUnauthorized:
		kind = auth.KindUnauthenticated
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		kind = auth.KindValidationFailed
	case status >= http.StatusInternalServerError:
		kind = auth.KindServer
	default:
		kind = auth.KindRequest
	}
	return auth.NewError(kind, status, msg, nil)
}

func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(text) > maxMessageRunes {
		text = string([]rune(text)[:maxMessageRunes])
	}
	return text
}
