package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pageload_quota_remaining",
		Help: "Requests remaining in the server-announced quota window",
	})

	quotaWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageload_quota_waits_total",
		Help: "Requests delayed by the quota tracker by reason",
	}, []string{"reason"}) // "block", "throttle"
)

// ErrQuotaExhausted is returned by Wait when the reset lies beyond MaxWait.
var ErrQuotaExhausted = errors.New("server quota exhausted")

const (
	fieldRemaining  = "remaining"
	fieldResetAt    = "reset_at"
	fieldLastUpdate = "last_update"
)

// Tracker stores the announced quota in a Redis hash and gates requests.
type Tracker struct {
	redis      *redis.Client
	key        string
	thresholds Thresholds
	logger     zerolog.Logger
}

// NewTracker creates a tracker storing its state under "<namespace>:quota".
func NewTracker(redisClient *redis.Client, namespace string, thresholds Thresholds, logger zerolog.Logger) *Tracker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Tracker{
		redis:      redisClient,
		key:        namespace + ":quota",
		thresholds: thresholds,
		logger:     logger,
	}
}

// State returns the stored quota, or nil when the server never announced one
// or the announcement expired.
func (t *Tracker) State(ctx context.Context) (*State, error) {
	values, err := t.redis.HGetAll(ctx, t.key).Result()
	if err != nil {
		return nil, fmt.Errorf("get quota state: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	remaining, err := strconv.Atoi(values[fieldRemaining])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	resetAt, err := strconv.ParseInt(values[fieldResetAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset: %w", err)
	}
	lastUpdate, _ := strconv.ParseInt(values[fieldLastUpdate], 10, 64)

	return &State{
		Remaining:  remaining,
		ResetAt:    time.UnixMilli(resetAt),
		LastUpdate: time.UnixMilli(lastUpdate),
	}, nil
}

// UpdateFromHeaders stores the quota announced by a response. Responses
// without quota headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := firstHeader(headers, RemainingHeaders)
	if remainStr == "" {
		return nil
	}
	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse remaining header: %w", err)
	}

	resetStr := firstHeader(headers, ResetHeaders)
	if resetStr == "" {
		return fmt.Errorf("reset header missing")
	}
	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse reset header: %w", err)
	}

	now := time.Now()
	state := State{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}

	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, t.key,
		fieldRemaining, state.Remaining,
		fieldResetAt, state.ResetAt.UnixMilli(),
		fieldLastUpdate, state.LastUpdate.UnixMilli(),
	)
	// The announcement is meaningless after the window reset.
	pipe.PExpireAt(ctx, t.key, state.ResetAt.Add(time.Second))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store quota state in redis: %w", err)
	}

	quotaRemaining.Set(float64(remain))

	switch {
	case state.NeedsBlock(t.thresholds):
		t.logger.Warn().Int("remaining", remain).Time("reset_at", state.ResetAt).Msg("Server quota critical, requests will wait for reset")
	case state.NeedsThrottling(t.thresholds):
		t.logger.Warn().Int("remaining", remain).Msg("Server quota low, requests will be throttled")
	default:
		t.logger.Debug().Int("remaining", remain).Time("reset_at", state.ResetAt).Msg("Server quota updated")
	}

	return nil
}

// Wait delays the caller according to the stored quota: until the reset when
// the quota is critical, by ThrottleDelay when it is low.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.State(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}

	var wait time.Duration
	switch {
	case state.NeedsBlock(t.thresholds):
		wait = state.TimeUntilReset()
		if t.thresholds.MaxWait > 0 && wait > t.thresholds.MaxWait {
			return fmt.Errorf("%w: reset in %s", ErrQuotaExhausted, wait.Round(time.Second))
		}
		quotaWaitsTotal.WithLabelValues("block").Inc()
		t.logger.Warn().Int("remaining", state.Remaining).Dur("wait", wait).Msg("Waiting for quota reset")
	case state.NeedsThrottling(t.thresholds):
		wait = t.thresholds.ThrottleDelay
		quotaWaitsTotal.WithLabelValues("throttle").Inc()
		t.logger.Debug().Int("remaining", state.Remaining).Dur("wait", wait).Msg("Throttling request")
	default:
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func firstHeader(headers http.Header, names []string) string {
	for _, name := range names {
		if v := headers.Get(name); v != "" {
			return v
		}
	}
	return ""
}
