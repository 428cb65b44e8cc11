package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means the request never produced an HTTP answer:
// dial failure, timeout, cancelled context, unreadable body.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("httpclient: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError is a 401 answer. Callers use it to resynchronise the session flag.
type AuthError struct {
	Method  string
	Path    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("httpclient: %s %s: unauthorized: %s", e.Method, e.Path, e.Message)
}

// StatusError is any other non-2xx answer.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: %s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

func IsUnauthorized(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// StatusCode reports the HTTP status carried by err, or 0 when err is not an HTTP answer.
func StatusCode(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
