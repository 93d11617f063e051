package easyprojectapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
)

// maxErrorBody bounds the response text kept in an APIError message.
const maxErrorBody = 2048

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Message: apiErrorMessage(status, body)}
}

// apiErrorMessage prefers Redmine's {"errors": [...]} list, then the raw
// body text, then the status text.
func apiErrorMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return http.StatusText(status)
	}

	var payload struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(trimmed, &payload); err == nil && len(payload.Errors) > 0 {
		return strings.Join(payload.Errors, "; ")
	}

	return truncate(string(trimmed))
}

// truncate cuts s to at most maxErrorBody bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("decode response: %v", e.Err)
	}
	return fmt.Sprintf("decode response: %v (body: %s)", e.Err, truncate(e.Body))
}

func (e *DecodeError) Unwrap() error { return e.Err }

// CacheError is a failure reading, writing or decoding a cached response.
// The call fails instead of falling back to the network.
type CacheError struct {
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error for %q: %v", e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the upstream API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
