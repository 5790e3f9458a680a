package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dispatcher delivers work to the context that owns a loader's consumers.
// Dispatch reports false when the work was refused and will never run.
type Dispatcher interface {
	Dispatch(fn func()) bool
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(fn func()) bool

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) bool { return f(fn) }

// Immediate runs work on the goroutine that dispatches it.
var Immediate Dispatcher = DispatcherFunc(func(fn func()) bool {
	fn()
	return true
})

// Loop is a single consumer context: work dispatched to it runs one item at a
// time, in order, on the goroutine that calls Run. Dispatch never blocks, so
// work running on the loop may dispatch more work.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	logger  zerolog.Logger
}

// NewLoop creates a loop with room for size pending items before its queue
// grows.
func NewLoop(size int) *Loop {
	if size < 0 {
		size = 0
	}
	return &Loop{
		pending: make([]func(), 0, size),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  log.With().Str("component", "event-loop").Logger(),
	}
}

// Dispatch enqueues fn. Once the loop has stopped fn is dropped and Dispatch
// returns false.
func (l *Loop) Dispatch(fn func()) bool {
	l.mu.Lock()
	select {
	case <-l.done:
		l.mu.Unlock()
		l.logger.Warn().Msg("Dropping work dispatched to stopped loop")
		return false
	default:
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// next pops the oldest pending item, or returns nil.
func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn
}

// Run executes dispatched work until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug().Msg("Event loop started")
	defer l.Stop()

	for {
		select {
		case <-l.done:
			l.logger.Debug().Msg("Event loop stopped")
			return nil
		case <-ctx.Done():
			l.logger.Debug().Msg("Event loop stopped (context cancelled)")
			return ctx.Err()
		case <-l.wake:
		}

		for fn := l.next(); fn != nil; fn = l.next() {
			select {
			case <-l.done:
				l.logger.Debug().Msg("Event loop stopped")
				return nil
			case <-ctx.Done():
				l.logger.Debug().Msg("Event loop stopped (context cancelled)")
				return ctx.Err()
			default:
			}
			fn()
		}
	}
}

// Stop ends Run and drops pending work. It is safe to call more than once.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		close(l.done)
		l.pending = nil
		l.mu.Unlock()
	})
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
