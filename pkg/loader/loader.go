// Package loader orchestrates remote fetches for a collection (ListLoader) or
// a single entity (ItemLoader).
//
// Both loaders share the same discipline:
//
//   - at most one fetch is in flight per loader; Load while fetching is a no-op
//   - Load dispatches events.Loading to the configured events.Dispatcher,
//     then runs the fetch function on its own goroutine
//   - the result is dispatched the same way, so every callback runs in the
//     consumer's context
//   - exactly one terminal event is fired per started cycle, after the
//     in-flight flag has been cleared, so a callback may call Load again
//   - when the dispatcher refuses work the in-flight flag is cleared and no
//     further event fires for that cycle
//
// Fetch failures never escape Load. Transport errors, server-reported error
// codes and empty payloads are all reported through the event bus.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/pageload/pkg/events"
	"github.com/Sternrassler/pageload/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrFetchPanic wraps a panic recovered from a fetch function.
var ErrFetchPanic = errors.New("fetch function panicked")

// ErrNilEnvelope is reported when a fetch function returns neither an
// envelope nor an error.
var ErrNilEnvelope = errors.New("fetch returned nil envelope")

// Options configures a loader. The zero value is usable.
type Options struct {
	// Name labels logs and metrics (default: "list" or "item").
	Name string

	// Bus receives the loader's events. A new bus is created when nil.
	Bus *events.Bus

	// Dispatcher delivers events to the consumer context.
	// Defaults to events.Immediate.
	Dispatcher events.Dispatcher

	// Logger overrides the component logger.
	Logger *zerolog.Logger

	// Limit is the initial page size of a ListLoader (default: pagination.DefaultLimit).
	Limit int
}

func (o Options) withDefaults(name string) Options {
	if o.Name == "" {
		o.Name = name
	}
	if o.Bus == nil {
		o.Bus = events.NewBus()
	}
	if o.Dispatcher == nil {
		o.Dispatcher = events.Immediate
	}
	if o.Logger == nil {
		logger := logging.NewLogger("loader").With().Str("loader", o.Name).Logger()
		o.Logger = &logger
	}
	return o
}

// call runs fetch and converts a panic into an error.
func call[E any](ctx context.Context, fetch func(context.Context) (*E, error)) (env *E, err error) {
	defer func() {
		if r := recover(); r != nil {
			env = nil
			err = fmt.Errorf("%w: %v", ErrFetchPanic, r)
		}
	}()

	env, err = fetch(ctx)
	if err == nil && env == nil {
		err = ErrNilEnvelope
	}
	return env, err
}

// result is what a completed cycle reports.
type result struct {
	kind    events.Kind
	outcome events.Outcome
	label   string
}
