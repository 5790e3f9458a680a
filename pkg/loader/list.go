package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/pageload/pkg/envelope"
	"github.com/Sternrassler/pageload/pkg/events"
	"github.com/Sternrassler/pageload/pkg/pagination"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PageFunc fetches the page at cursor. It must return exactly once per call.
type PageFunc[T any] func(ctx context.Context, cursor pagination.Cursor) (*envelope.Envelope[envelope.DataPage[T]], error)

// ListLoader fetches a collection page by page.
type ListLoader[T any] struct {
	name       string
	fetch      PageFunc[T]
	bus        *events.Bus
	dispatcher events.Dispatcher
	logger     zerolog.Logger

	fetching atomic.Bool

	mu    sync.RWMutex
	state *pagination.PageState[T]
}

// NewList creates a list loader around fetch.
func NewList[T any](fetch PageFunc[T], opts Options) *ListLoader[T] {
	if fetch == nil {
		panic("loader: fetch function cannot be nil")
	}
	opts = opts.withDefaults("list")

	state := pagination.New[T]().WithLogger(*opts.Logger)
	if opts.Limit > 0 {
		state.SetLimit(opts.Limit)
	}

	return &ListLoader[T]{
		name:       opts.Name,
		fetch:      fetch,
		bus:        opts.Bus,
		dispatcher: opts.Dispatcher,
		logger:     *opts.Logger,
		state:      state,
	}
}

// Bus returns the bus the loader fires its events on.
func (l *ListLoader[T]) Bus() *events.Bus { return l.bus }

// Fetching reports whether a fetch is in flight.
func (l *ListLoader[T]) Fetching() bool { return l.fetching.Load() }

// Load fetches the page at the current cursor. With reset the page state is
// cleared first, so the first page is requested. Load returns false without
// fetching when a fetch is already in flight or the dispatcher refuses work.
func (l *ListLoader[T]) Load(ctx context.Context, reset bool) bool {
	if !l.fetching.CompareAndSwap(false, true) {
		loadsDroppedTotal.WithLabelValues(l.name, dropInFlight).Inc()
		l.logger.Debug().Bool("reset", reset).Msg("Load dropped, fetch already in flight")
		return false
	}

	logger := l.logger.With().Str("cycle_id", uuid.NewString()).Logger()

	l.mu.Lock()
	if reset {
		l.state.Reset()
	}
	cursor := l.state.Cursor()
	l.mu.Unlock()

	if !l.dispatcher.Dispatch(func() { l.bus.FireSuccess(events.Loading) }) {
		l.fetching.Store(false)
		loadsDroppedTotal.WithLabelValues(l.name, dropRefused).Inc()
		logger.Warn().Msg("Load dropped, dispatcher refused work")
		return false
	}

	logger.Debug().
		Bool("reset", reset).
		Int("limit", cursor.Limit).
		Int("offset", cursor.Offset).
		Msg("Fetching page")

	go l.run(ctx, logger, cursor)
	return true
}

// Refresh clears the loaded pages and fetches the first one.
func (l *ListLoader[T]) Refresh(ctx context.Context) bool { return l.Load(ctx, true) }

// LoadMore fetches the next page.
func (l *ListLoader[T]) LoadMore(ctx context.Context) bool { return l.Load(ctx, false) }

func (l *ListLoader[T]) run(ctx context.Context, logger zerolog.Logger, cursor pagination.Cursor) {
	start := time.Now()
	env, err := call(ctx, func(ctx context.Context) (*envelope.Envelope[envelope.DataPage[T]], error) {
		return l.fetch(ctx, cursor)
	})
	fetchDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())

	if !l.dispatcher.Dispatch(func() { l.processResult(logger, env, err) }) {
		l.fetching.Store(false)
		loadsTotal.WithLabelValues(l.name, outcomeUndelivered).Inc()
		logger.Warn().Msg("Page result dropped, dispatcher refused work")
	}
}

func (l *ListLoader[T]) processResult(logger zerolog.Logger, env *envelope.Envelope[envelope.DataPage[T]], err error) {
	res := l.interpret(logger, env, err)

	l.fetching.Store(false)
	loadsTotal.WithLabelValues(l.name, res.label).Inc()
	l.bus.Fire(res.kind, res.outcome)
}

func (l *ListLoader[T]) interpret(logger zerolog.Logger, env *envelope.Envelope[envelope.DataPage[T]], err error) result {
	switch {
	case err != nil:
		logger.Error().Err(err).Msg("Page fetch failed")
		return result{events.LoadFailure, events.Unknown, outcomeTransportError}

	case !env.Succeeded():
		logger.Warn().
			Int("error_code", env.ErrorCode).
			Str("error_message", env.ErrorMessage).
			Msg("Server reported failure")
		return result{events.LoadFailure, events.Outcome{Code: env.ErrorCode, Message: env.ErrorMessage}, outcomeServerError}

	case !env.HasData():
		logger.Info().Msg("Page fetch returned no data")
		return result{events.NoData, events.Empty, outcomeEmpty}
	}

	l.mu.Lock()
	more := l.state.Apply(*env.Data)
	size, total, offset, skipped := l.state.Size(), l.state.Total(), l.state.Offset(), l.state.Skipped()
	l.mu.Unlock()

	if nulls := countNil(env.Data.Rows); nulls > 0 {
		rowsSkippedTotal.WithLabelValues(l.name).Add(float64(nulls))
	}

	logger.Info().
		Int("rows", len(env.Data.Rows)).
		Int("size", size).
		Int("skipped", skipped).
		Int("total", total).
		Int("next_offset", offset).
		Bool("has_more", more).
		Msg("Page applied")

	if more {
		return result{events.LoadMore, events.Success, outcomeMore}
	}
	return result{events.NoData, events.Success, outcomeEnd}
}

func countNil[T any](rows []*T) int {
	n := 0
	for _, row := range rows {
		if row == nil {
			n++
		}
	}
	return n
}

// Item returns the entity at position, or false when out of range.
func (l *ListLoader[T]) Item(position int) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Item(position)
}

// Rows returns a copy of the loaded entities.
func (l *ListLoader[T]) Rows() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Rows()
}

// Size returns the number of loaded entities.
func (l *ListLoader[T]) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Size()
}

// Total returns the last known server-side total.
func (l *ListLoader[T]) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Total()
}

// Skipped returns the number of null rows dropped.
func (l *ListLoader[T]) Skipped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Skipped()
}

// HasSkipped reports whether any row was dropped.
func (l *ListLoader[T]) HasSkipped() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.HasSkipped()
}

// Limit returns the page size.
func (l *ListLoader[T]) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Limit()
}

// Offset returns the cursor position of the next fetch.
func (l *ListLoader[T]) Offset() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Offset()
}

// PageNumber returns the 1-based page number of the cursor.
func (l *ListLoader[T]) PageNumber() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.PageNumber()
}

// IsFirstPage reports whether the cursor points at the first page.
func (l *ListLoader[T]) IsFirstPage() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsFirstPage()
}

// HasData reports whether any entity is loaded.
func (l *ListLoader[T]) HasData() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.HasData()
}

// HasMore reports whether the collection holds entities not yet loaded.
func (l *ListLoader[T]) HasMore() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.HasMore()
}

// Clear drops all loaded pages.
func (l *ListLoader[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Reset()
}
