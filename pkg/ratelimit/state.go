// Package ratelimit tracks the request quota a server announces through
// RateLimit-Remaining / RateLimit-Reset headers (or their X-RateLimit-
// variants) and gates requests before the quota runs out. The state lives in
// Redis so every process walking the same API shares one budget.
package ratelimit

import (
	"time"
)

// Header names checked in order; the first present one wins.
var (
	RemainingHeaders = []string{"RateLimit-Remaining", "X-RateLimit-Remaining"}
	ResetHeaders     = []string{"RateLimit-Reset", "X-RateLimit-Reset"}
)

// Thresholds controls when requests are delayed.
type Thresholds struct {
	// Critical blocks requests until the window resets when fewer requests
	// than this remain.
	Critical int

	// Warning delays every request by ThrottleDelay when fewer requests than
	// this remain.
	Warning int

	// ThrottleDelay is the delay applied below Warning.
	ThrottleDelay time.Duration

	// MaxWait caps the time spent waiting for a reset.
	MaxWait time.Duration
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical:      5,
		Warning:       20,
		ThrottleDelay: time.Second,
		MaxWait:       2 * time.Minute,
	}
}

// State is the last quota announced by the server.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was taken from a response.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock reports whether requests must wait for the reset.
func (s *State) NeedsBlock(th Thresholds) bool {
	return s.Remaining < th.Critical && s.TimeUntilReset() > 0
}

// NeedsThrottling reports whether requests should be slowed down.
func (s *State) NeedsThrottling(th Thresholds) bool {
	return s.Remaining < th.Warning && !s.NeedsBlock(th) && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets, or 0.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}
