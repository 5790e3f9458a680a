package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/pageload/pkg/envelope"
	"github.com/Sternrassler/pageload/pkg/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ItemFunc fetches the entity identified by param.
type ItemFunc[P, T any] func(ctx context.Context, param P) (*envelope.Envelope[T], error)

// ItemLoader fetches a single entity.
type ItemLoader[P, T any] struct {
	name       string
	fetch      ItemFunc[P, T]
	bus        *events.Bus
	dispatcher events.Dispatcher
	logger     zerolog.Logger

	fetching atomic.Bool

	mu      sync.RWMutex
	current *T
}

// NewItem creates an item loader around fetch.
func NewItem[P, T any](fetch ItemFunc[P, T], opts Options) *ItemLoader[P, T] {
	if fetch == nil {
		panic("loader: fetch function cannot be nil")
	}
	opts = opts.withDefaults("item")

	return &ItemLoader[P, T]{
		name:       opts.Name,
		fetch:      fetch,
		bus:        opts.Bus,
		dispatcher: opts.Dispatcher,
		logger:     *opts.Logger,
	}
}

// Bus returns the bus the loader fires its events on.
func (l *ItemLoader[P, T]) Bus() *events.Bus { return l.bus }

// Fetching reports whether a fetch is in flight.
func (l *ItemLoader[P, T]) Fetching() bool { return l.fetching.Load() }

// Current returns the last successfully loaded entity.
func (l *ItemLoader[P, T]) Current() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		var zero T
		return zero, false
	}
	return *l.current, true
}

// Load fetches the entity identified by param. It returns false without
// fetching when a fetch is already in flight or the dispatcher refuses work.
func (l *ItemLoader[P, T]) Load(ctx context.Context, param P) bool {
	if !l.fetching.CompareAndSwap(false, true) {
		loadsDroppedTotal.WithLabelValues(l.name, dropInFlight).Inc()
		l.logger.Debug().Msg("Load dropped, fetch already in flight")
		return false
	}

	logger := l.logger.With().Str("cycle_id", uuid.NewString()).Logger()
	if !l.dispatcher.Dispatch(func() { l.bus.FireSuccess(events.Loading) }) {
		l.fetching.Store(false)
		loadsDroppedTotal.WithLabelValues(l.name, dropRefused).Inc()
		logger.Warn().Msg("Load dropped, dispatcher refused work")
		return false
	}
	logger.Debug().Interface("param", param).Msg("Fetching item")

	go func() {
		start := time.Now()
		env, err := call(ctx, func(ctx context.Context) (*envelope.Envelope[T], error) {
			return l.fetch(ctx, param)
		})
		fetchDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())

		if !l.dispatcher.Dispatch(func() { l.processResult(logger, env, err) }) {
			l.fetching.Store(false)
			loadsTotal.WithLabelValues(l.name, outcomeUndelivered).Inc()
			logger.Warn().Msg("Item result dropped, dispatcher refused work")
		}
	}()
	return true
}

func (l *ItemLoader[P, T]) processResult(logger zerolog.Logger, env *envelope.Envelope[T], err error) {
	var res result

	switch {
	case err != nil:
		logger.Error().Err(err).Msg("Item fetch failed")
		res = result{events.LoadFailure, events.Unknown, outcomeTransportError}

	case !env.Succeeded():
		logger.Warn().
			Int("error_code", env.ErrorCode).
			Str("error_message", env.ErrorMessage).
			Msg("Server reported failure")
		res = result{events.LoadFailure, events.Outcome{Code: env.ErrorCode, Message: env.ErrorMessage}, outcomeServerError}

	case !env.HasData():
		logger.Info().Msg("Item fetch returned no data")
		res = result{events.NoData, events.Empty, outcomeEmpty}

	default:
		l.mu.Lock()
		l.current = env.Data
		l.mu.Unlock()
		logger.Info().Msg("Item loaded")
		res = result{events.LoadSuccess, events.Success, outcomeSuccess}
	}

	l.fetching.Store(false)
	loadsTotal.WithLabelValues(l.name, res.label).Inc()
	l.bus.Fire(res.kind, res.outcome)
}
