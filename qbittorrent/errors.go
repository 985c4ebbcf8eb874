package qbittorrent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Common errors returned by the qBittorrent client.
var (
	// ErrConnectionFailed is returned when connection to qBittorrent fails.
	ErrConnectionFailed = errors.New("connection to qBittorrent failed")

	// ErrLoginFailed is returned when qBittorrent rejects the credentials.
	ErrLoginFailed = errors.New("qBittorrent login failed")

	// ErrUnauthorized is returned when the session is missing or expired.
	ErrUnauthorized = errors.New("unauthorized: qBittorrent session missing or expired")

	// ErrBadResponse is returned when qBittorrent answers with an unexpected status or body.
	ErrBadResponse = errors.New("unexpected response from qBittorrent")
)

// APIError represents a non-2xx qBittorrent Web API response
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("qBittorrent API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("qBittorrent API error: status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// mapHTTPError turns a non-2xx response into an *APIError wrapping a sentinel.
func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Body:       strings.TrimSpace(string(resp.Body())),
		Err:        ErrBadResponse,
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Err = ErrUnauthorized
	}
	return apiErr
}
