package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrOffline is returned when a request is attempted while the backend is
	// known to be unreachable.
	ErrOffline = errors.New("server is offline")

	// ErrRequestFailed is returned when the backend could not be reached or
	// answered with a non-2xx status.
	ErrRequestFailed = errors.New("request failed")
)

// HTTPError represents a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	text := e.Status
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	return "HTTP " + strconv.Itoa(e.StatusCode) + ": " + text
}

// Is lets errors.Is(err, ErrRequestFailed) match HTTP errors.
func (e *HTTPError) Is(target error) bool {
	return target == ErrRequestFailed
}

// newHTTPError keeps the reason phrase sent by the backend, falling back to
// the standard text when it sent none.
func newHTTPError(resp *http.Response) *HTTPError {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     text,
	}
}
