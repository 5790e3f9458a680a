package client

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRateLimited is returned when waiting for the local rate limiter failed.
	ErrRateLimited = errors.New("rate limiter wait failed")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// HTTPError is a non-successful HTTP answer that carried no usable envelope.
type HTTPError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	RetryAfter time.Duration
	Err        error

	// Body holds the start of a retriable error answer's body.
	Body []byte
}

// maxErrorBody caps how much of an error body is kept on an HTTPError.
const maxErrorBody = 64 << 10

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (status %d): %s: %v", e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status to an error class ("" for success).
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classifyError maps an error returned by a request attempt to its class.
func classifyError(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.ErrorClass
	}
	return ErrorClassNetwork
}

// newHTTPError builds an HTTPError from a response.
func newHTTPError(resp *http.Response) *HTTPError {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// parseRetryAfter accepts both delta-seconds and HTTP-date values.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// shouldRetry determines if an error class should be retried.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx answers are final
		return false
	}
}
