package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAbandoned marks a response that was discarded because its requester went
// away or a newer request superseded it. It is never shown to the user.
var ErrAbandoned = errors.New("response abandoned")

// NetworkError is returned when the request did not complete.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is returned when the server sends a non-2xx status. Message is the
// server's own error text when the body was JSON; otherwise Unparseable is set
// and Message falls back to the status text.
type APIError struct {
	Status      int
	Message     string
	Unparseable bool
	Body        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

const maxErrorBody = 512

func parseAPIError(status int, data []byte) *APIError {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &errResp) == nil && (errResp.Error != "" || errResp.Message != "") {
		msg := errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
		return &APIError{Status: status, Message: msg}
	}

	body := strings.TrimSpace(string(data))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	msg := http.StatusText(status)
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	return &APIError{Status: status, Message: msg, Unparseable: true, Body: body}
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsAbandoned reports whether err means the caller no longer wants the result:
// either ErrAbandoned or a cancelled context.
func IsAbandoned(err error) bool {
	return errors.Is(err, ErrAbandoned) || errors.Is(err, context.Canceled)
}

// UserMessage renders err the way it should be shown to a person: the server's
// message verbatim where there is one, a generic line otherwise.
func UserMessage(err error) string {
	var (
		apiErr *APIError
		netErr *NetworkError
		valErr *ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.As(err, &apiErr):
		if apiErr.Status == http.StatusUnauthorized {
			return "your session is no longer valid, run \"propdesk login\""
		}
		return apiErr.Message
	case errors.As(err, &netErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return "the server took too long to respond"
		}
		return "could not reach the server"
	default:
		return err.Error()
	}
}
