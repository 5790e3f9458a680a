package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownEvent is returned when a name does not match any Kind.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrUnbound is the cause of the panic raised when firing an event
	// without a bound callback.
	ErrUnbound = errors.New("no callback bound")
)

// UnboundError identifies the event that was fired without a callback.
type UnboundError struct {
	Kind Kind
}

// Error implements the error interface.
func (e *UnboundError) Error() string {
	return fmt.Sprintf("events: %v for %s", ErrUnbound, e.Kind)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UnboundError) Unwrap() error {
	return ErrUnbound
}

// Bus holds exactly one callback per event kind.
type Bus struct {
	mu        sync.RWMutex
	callbacks [numKinds]Callback
	logger    zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		logger: log.With().Str("component", "events").Logger(),
	}
}

// WithLogger replaces the bus logger.
func (b *Bus) WithLogger(logger zerolog.Logger) *Bus {
	b.logger = logger
	return b
}

// Bind registers cb for kind. A later Bind for the same kind replaces it.
func (b *Bus) Bind(kind Kind, cb Callback) {
	if !kind.Valid() {
		panic(fmt.Sprintf("events: bind of invalid %s", kind))
	}
	if cb == nil {
		panic(fmt.Sprintf("events: nil callback for %s", kind))
	}

	b.mu.Lock()
	replaced := b.callbacks[kind] != nil
	b.callbacks[kind] = cb
	b.mu.Unlock()

	if replaced {
		b.logger.Debug().Str("event", kind.String()).Msg("Replaced event callback")
	}
}

// BindName registers cb under a canonical event name such as "LOAD_MORE".
func (b *Bus) BindName(name string, cb Callback) error {
	kind, err := ParseKind(name)
	if err != nil {
		return err
	}
	b.Bind(kind, cb)
	return nil
}

// Unbind removes the callback for kind.
func (b *Bus) Unbind(kind Kind) {
	if !kind.Valid() {
		return
	}
	b.mu.Lock()
	b.callbacks[kind] = nil
	b.mu.Unlock()
}

// Bound reports whether a callback is registered for kind.
func (b *Bus) Bound(kind Kind) bool {
	if !kind.Valid() {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.callbacks[kind] != nil
}

// Fire invokes the callback bound to kind on the calling goroutine.
// Firing an unbound kind is a wiring bug and panics with *UnboundError.
func (b *Bus) Fire(kind Kind, outcome Outcome) {
	var cb Callback
	if kind.Valid() {
		b.mu.RLock()
		cb = b.callbacks[kind]
		b.mu.RUnlock()
	}

	if cb == nil {
		err := &UnboundError{Kind: kind}
		b.logger.Error().Err(err).Str("event", kind.String()).Msg("Event fired without callback")
		panic(err)
	}

	cb(outcome)
}

// FireSuccess fires kind with the success outcome.
func (b *Bus) FireSuccess(kind Kind) {
	b.Fire(kind, Success)
}
