package notion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"
)

// Kind classifies a failure for retry decisions and for callers.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindPermission     Kind = "permission"
	KindTransient      Kind = "transient"
	KindCanceled       Kind = "canceled"
	KindInternal       Kind = "internal"
)

// ErrMissingToken is returned when the client has no integration token.
var ErrMissingToken = errors.New("notion integration token is not configured")

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`

	retryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("notion api error %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// RetryAfter returns the server supplied backoff hint, if any.
func (e *APIError) RetryAfter() time.Duration { return e.retryAfter }

// ParamError reports a request rejected before it reached the API.
type ParamError struct {
	Param   string
	Message string
}

func (e *ParamError) Error() string {
	if e.Param == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Param, e.Message)
}

// NetworkError wraps transport level failures and per-request timeouts.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Classify maps err onto a Kind. Only KindTransient is worth retrying.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var (
		apiErr   *APIError
		paramErr *ParamError
		netErr   *NetworkError
	)
	switch {
	case errors.As(err, &netErr):
		return KindTransient
	case errors.As(err, &apiErr):
		return classifyAPIError(apiErr)
	case errors.As(err, &paramErr):
		return KindValidation
	case errors.Is(err, ErrMissingToken):
		return KindAuthentication
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case isConnectionError(err):
		return KindTransient
	default:
		return KindInternal
	}
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

func classifyAPIError(e *APIError) Kind {
	switch e.Code {
	case "unauthorized":
		return KindAuthentication
	case "restricted_resource":
		return KindPermission
	case "object_not_found":
		return KindNotFound
	case "validation_error", "invalid_json", "invalid_request_url", "invalid_request", "missing_version":
		return KindValidation
	case "rate_limited", "conflict_error", "internal_server_error", "service_unavailable",
		"database_connection_unavailable", "gateway_timeout":
		return KindTransient
	}

	switch e.StatusCode {
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests, http.StatusConflict, http.StatusRequestTimeout,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransient
	}
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return KindValidation
	}
	if e.StatusCode >= 500 {
		return KindTransient
	}
	return KindInternal
}

func isConnectionError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
