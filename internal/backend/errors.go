package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport wraps failures where no response was received.
	ErrTransport = errors.New("backend unreachable")

	// ErrUnauthenticated means the session is missing or expired.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrMalformedResponse means a 2xx response did not carry the expected data.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// APIError is a request the backend answered but rejected.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Unwrap lets errors.Is(err, ErrUnauthenticated) match 401 and 403 responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthenticated
	}
	return nil
}

// IsRejected reports whether err is a backend rejection (as opposed to a
// transport or local failure).
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// errorBody is the error envelope used by the backend. Both keys occur.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// rejection returns a non-nil *APIError when status is not 2xx, or when a 2xx
// body still carries an "error" field.
func rejection(status int, body []byte) *APIError {
	var eb errorBody
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		_ = json.Unmarshal([]byte(trimmed), &eb)
	}

	if status >= 200 && status < 300 {
		if eb.Error == "" {
			return nil
		}
		return &APIError{StatusCode: status, Message: eb.Error}
	}

	msg := eb.Error
	if msg == "" {
		msg = eb.Message
	}
	if msg == "" && !strings.HasPrefix(trimmed, "{") && len(trimmed) < 200 {
		msg = trimmed
	}
	return &APIError{StatusCode: status, Message: msg}
}
