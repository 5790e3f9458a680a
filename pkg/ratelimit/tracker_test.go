package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestTracker(t *testing.T, th Thresholds) *Tracker {
	return NewTracker(setupTestRedis(t), "test", th, zerolog.Nop())
}

func TestNewTracker_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewTracker should panic with nil redis client")
		}
	}()
	NewTracker(nil, "test", DefaultThresholds(), zerolog.Nop())
}

func TestFirstHeader(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-RateLimit-Remaining", "7")
	if got := firstHeader(headers, RemainingHeaders); got != "7" {
		t.Errorf("firstHeader() = %q, want 7", got)
	}

	headers.Set("RateLimit-Remaining", "3")
	if got := firstHeader(headers, RemainingHeaders); got != "3" {
		t.Errorf("firstHeader() = %q, want standard header to win", got)
	}

	if got := firstHeader(http.Header{}, ResetHeaders); got != "" {
		t.Errorf("firstHeader() = %q, want empty", got)
	}
}

func TestUpdateFromHeaders(t *testing.T) {
	tracker := newTestTracker(t, DefaultThresholds())
	ctx := context.Background()

	tests := []struct {
		name          string
		headers       map[string]string
		wantErr       bool
		wantRemaining int
	}{
		{"standard headers", map[string]string{"RateLimit-Remaining": "42", "RateLimit-Reset": "30"}, false, 42},
		{"legacy headers", map[string]string{"X-RateLimit-Remaining": "15", "X-RateLimit-Reset": "60"}, false, 15},
		{"missing reset", map[string]string{"RateLimit-Remaining": "10"}, true, 0},
		{"invalid remaining", map[string]string{"RateLimit-Remaining": "lots", "RateLimit-Reset": "1"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			err := tracker.UpdateFromHeaders(ctx, headers)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateFromHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			state, err := tracker.State(ctx)
			if err != nil || state == nil {
				t.Fatalf("State() = %v, %v", state, err)
			}
			if state.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.wantRemaining)
			}
			if state.TimeUntilReset() <= 0 {
				t.Error("ResetAt should lie in the future")
			}
		})
	}
}

func TestUpdateFromHeaders_NoHeaders(t *testing.T) {
	tracker := newTestTracker(t, DefaultThresholds())
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, http.Header{}); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}
	state, err := tracker.State(ctx)
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state != nil {
		t.Errorf("State() = %+v, want nil without announcement", state)
	}
}

func TestWait(t *testing.T) {
	th := Thresholds{Critical: 5, Warning: 20, ThrottleDelay: 50 * time.Millisecond, MaxWait: 5 * time.Second}

	tests := []struct {
		name    string
		remain  string
		reset   string
		minWait time.Duration
		maxWait time.Duration
		wantErr error
	}{
		{"healthy", "100", "60", 0, 40 * time.Millisecond, nil},
		{"throttled", "10", "60", 50 * time.Millisecond, time.Second, nil},
		{"blocked until reset", "1", "1", 500 * time.Millisecond, 2 * time.Second, nil},
		{"reset beyond max wait", "0", "600", 0, 40 * time.Millisecond, ErrQuotaExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(t, th)
			ctx := context.Background()

			headers := http.Header{}
			headers.Set("RateLimit-Remaining", tt.remain)
			headers.Set("RateLimit-Reset", tt.reset)
			if err := tracker.UpdateFromHeaders(ctx, headers); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			start := time.Now()
			err := tracker.Wait(ctx)
			elapsed := time.Since(start)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Wait() error = %v, want %v", err, tt.wantErr)
			}
			if elapsed < tt.minWait || elapsed > tt.maxWait {
				t.Errorf("Wait() took %v, want between %v and %v", elapsed, tt.minWait, tt.maxWait)
			}
		})
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	tracker := newTestTracker(t, DefaultThresholds())

	headers := http.Header{}
	headers.Set("RateLimit-Remaining", "0")
	headers.Set("RateLimit-Reset", "30")
	if err := tracker.UpdateFromHeaders(context.Background(), headers); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := tracker.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}
