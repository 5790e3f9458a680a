package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = def.BackoffMultiplier
	}
	return c
}

// jitter spreads d by ±20%.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retriable
// error class, or the attempts are exhausted. Rate-limited answers wait at
// least their Retry-After duration.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger zerolog.Logger, fn func() error) error {
	config = config.withDefaults()

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("Request succeeded after retry")
			}
			return nil
		}
		lastErr = err

		errorClass := classifyError(err)
		if !shouldRetry(errorClass) || ctx.Err() != nil {
			return err
		}
		if attempt >= config.MaxAttempts {
			break
		}

		wait := jitter(backoff)
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > wait {
			wait = httpErr.RetryAfter
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

		logger.Debug().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	errorClass := classifyError(lastErr)
	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
