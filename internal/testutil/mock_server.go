// Package testutil provides testing utilities for pageload.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/pageload/pkg/envelope"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockServer is a configurable mock envelope API for testing.
type MockServer struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	LastQuery         map[string][]string
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	mock := &MockServer{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.URL.Query()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorCode":404,"errorMessage":"not found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockServer) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockServer) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection serves rows at path as limit/offset pages. A nil row is
// encoded as JSON null. Every page carries its own ETag and conditional
// requests matching it are answered with 304.
func (m *MockServer) SetCollection(path string, rows []any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit <= 0 || offset < 0 {
			writeJSON(w, http.StatusBadRequest, envelope.Failure[any](http.StatusBadRequest, "invalid cursor"), nil)
			return
		}

		etag := fmt.Sprintf(`"%d-%d-%d"`, len(rows), limit, offset)
		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		page := envelope.DataPage[any]{Total: len(rows), Limit: limit, Offset: offset}
		for i := offset; i < offset+limit && i < len(rows); i++ {
			if rows[i] == nil {
				page.Rows = append(page.Rows, nil)
				continue
			}
			row := rows[i]
			page.Rows = append(page.Rows, &row)
		}

		if len(page.Rows) == 0 {
			writeJSON(w, http.StatusOK, envelope.Empty[envelope.DataPage[any]](), map[string]string{"ETag": etag})
			return
		}
		writeJSON(w, http.StatusOK, envelope.Success(page), map[string]string{"ETag": etag})
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockServer) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastQuery returns the query of the last request.
func (m *MockServer) GetLastQuery() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

func writeJSON(w http.ResponseWriter, status int, body any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// NewEnvelopeResponse creates a 200 OK response carrying data as a
// successful envelope.
func NewEnvelopeResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"errorCode":0,"errorMessage":"success","data":%s}`, data),
		Headers: map[string]string{
			"ETag":         `"test-etag-123"`,
			"Expires":      time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewFailureResponse creates an error response whose body is a failure
// envelope.
func NewFailureResponse(status, code int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"errorCode":%d,"errorMessage":%q}`, code, message),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewConditionalHandler creates a handler that responds with 304 for conditional requests.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
