// Package logging configures the zerolog loggers used by loaders, the HTTP
// client and the pageload command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Loggers derived afterwards
// through NewLogger inherit its output.
func Setup(cfg Config) zerolog.Logger {
	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = LevelInfo
	}
	zerolog.SetGlobalLevel(zerologLevel(level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name. "warning" is accepted for warn.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", name)
	}
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Load requests and the cursor they fetch
//   - Dropped loads while a fetch is in flight
//   - Cache operations (hit/miss, conditional requests, TTL)
//   - Callback rebinding on the event bus
//
// Info: Normal operation events
//   - Pages applied (rows, skipped, total, next offset)
//   - Items loaded, empty results
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Failure envelopes reported by the server
//   - Retry attempts and 4xx/5xx answers
//   - Page metadata that violates the row accounting
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Transport failures (after retries)
//   - Fetch function panics
//   - Events fired without a bound callback
//   - Configuration errors
//
// Context Fields:
//   - component: loader, http-client, cache, events, pagination, pageload
//   - loader: loader name
//   - cycle_id: one load cycle, from Load to its terminal event
//   - limit, offset, next_offset: cursor values
//   - rows, size, skipped, total: page accounting
//   - endpoint: request path
//   - error_class: client, server, rate_limit, network
//   - error_code, error_message: failure envelope contents
