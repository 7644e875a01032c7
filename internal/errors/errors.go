package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Base error types
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeDecode     ErrorType = "decode"
)

// APIError is returned for every failed call against the backend API.
type APIError struct {
	Type       ErrorType
	Op         string // Operation that failed (e.g., "get", "post")
	Method     string
	Path       string
	StatusCode int    // HTTP status code if applicable
	StatusText string // e.g. "Service Unavailable"
	Detail     string // envelope error or body excerpt
	Err        error  // Underlying error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return "API error: " + e.StatusText
	}
	if e.Err != nil {
		return fmt.Sprintf("API error: %s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("API error: %s %s failed", e.Method, e.Path)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *APIError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrUnauthorized:
		return e.Type == ErrorTypeAuth && e.StatusCode != http.StatusForbidden
	case ErrForbidden:
		return e.Type == ErrorTypeAuth && e.StatusCode == http.StatusForbidden
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ErrConnectionFailed:
		return e.Type == ErrorTypeConnection
	}

	return errors.Is(e.Err, target)
}

// NewHTTPStatusError builds the error for a non-2xx response.
func NewHTTPStatusError(method, path string, statusCode int, status, detail string) *APIError {
	errorType := ErrorTypeAPI
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		errorType = ErrorTypeAuth
	case http.StatusNotFound:
		errorType = ErrorTypeNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		errorType = ErrorTypeTimeout
	}

	return &APIError{
		Type:       errorType,
		Op:         strings.ToLower(method),
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		StatusText: statusText(statusCode, status),
		Detail:     strings.TrimSpace(detail),
	}
}

// statusText strips the numeric prefix net/http puts on Response.Status.
func statusText(code int, status string) string {
	status = strings.TrimSpace(status)
	if prefix := fmt.Sprintf("%d ", code); strings.HasPrefix(status, prefix) {
		status = strings.TrimSpace(strings.TrimPrefix(status, prefix))
	}
	if status == "" || status == fmt.Sprintf("%d", code) {
		status = http.StatusText(code)
	}
	if status == "" {
		status = fmt.Sprintf("status %d", code)
	}
	return status
}

// Helper functions

// WrapConnectionError wraps a transport error with request context
func WrapConnectionError(method, path string, err error) error {
	errorType := ErrorTypeConnection
	if isTimeout(err) {
		errorType = ErrorTypeTimeout
	}
	return &APIError{
		Type:   errorType,
		Op:     strings.ToLower(method),
		Method: method,
		Path:   path,
		Err:    err,
	}
}

// WrapDecodeError wraps a response body decoding failure
func WrapDecodeError(method, path string, err error) error {
	return &APIError{
		Type:   ErrorTypeDecode,
		Op:     "decode",
		Method: method,
		Path:   path,
		Err:    err,
	}
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	return errors.Is(err, ErrTimeout)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == ErrorTypeAuth {
			return true
		}
		if apiErr.StatusCode == 401 || apiErr.StatusCode == 403 {
			return true
		}
	}

	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsRetryableError reports whether the next poll tick is likely to succeed.
func IsRetryableError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case ErrorTypeConnection, ErrorTypeTimeout:
			return true
		case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeDecode:
			return false
		}
		code := apiErr.StatusCode
		return code >= 500 || code == http.StatusTooManyRequests
	}

	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionFailed)
}
