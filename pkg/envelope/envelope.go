// Package envelope defines the decoded result of a remote fetch: an error
// code, an error message and an optional payload.
package envelope

import (
	"encoding/json"
	"fmt"
	"io"
)

// Result codes shared by all envelopes.
const (
	// CodeSuccess is the success sentinel reported by the server.
	CodeSuccess = 0

	// CodeUnknown is used when the fetch itself failed (network, decoding).
	CodeUnknown = -1

	// CodeEmpty is used when the server reported success without a payload.
	CodeEmpty = -2
)

// Messages paired with the result codes above.
const (
	MessageSuccess = "success"
	MessageUnknown = "unknown error"
	MessageEmpty   = "empty result"
)

// Envelope is the success/failure wrapper returned by a remote fetch.
type Envelope[T any] struct {
	// ErrorCode is CodeSuccess on success, any other value is an
	// application-defined failure code.
	ErrorCode int `json:"errorCode"`

	// ErrorMessage is a human-readable message paired with ErrorCode.
	ErrorMessage string `json:"errorMessage"`

	// Data is the payload. It is nil on failure and may be nil on success.
	Data *T `json:"data,omitempty"`
}

// Succeeded reports whether the envelope carries the success sentinel.
func (e *Envelope[T]) Succeeded() bool {
	return e != nil && e.ErrorCode == CodeSuccess
}

// HasData reports whether a payload is present.
func (e *Envelope[T]) HasData() bool {
	return e != nil && e.Data != nil
}

// Success wraps data in a successful envelope.
func Success[T any](data T) *Envelope[T] {
	return &Envelope[T]{
		ErrorCode:    CodeSuccess,
		ErrorMessage: MessageSuccess,
		Data:         &data,
	}
}

// Empty returns a successful envelope without payload.
func Empty[T any]() *Envelope[T] {
	return &Envelope[T]{
		ErrorCode:    CodeSuccess,
		ErrorMessage: MessageSuccess,
	}
}

// Failure returns a server-reported failure envelope.
func Failure[T any](code int, message string) *Envelope[T] {
	return &Envelope[T]{
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

// Decode reads a JSON encoded envelope from r.
func Decode[T any](r io.Reader) (*Envelope[T], error) {
	var env Envelope[T]
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
