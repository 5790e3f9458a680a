package loader

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/pageload/pkg/envelope"
	"github.com/Sternrassler/pageload/pkg/events"
	"github.com/Sternrassler/pageload/pkg/pagination"
)

// recorder binds every event kind and records what was fired.
type recorder struct {
	mu       sync.Mutex
	kinds    []events.Kind
	outcomes []events.Outcome
	terminal chan events.Kind
}

func newRecorder(bus *events.Bus) *recorder {
	r := &recorder{terminal: make(chan events.Kind, 32)}
	for _, kind := range events.Kinds() {
		kind := kind
		bus.Bind(kind, func(o events.Outcome) { r.record(kind, o) })
	}
	return r
}

func (r *recorder) record(kind events.Kind, o events.Outcome) {
	r.mu.Lock()
	r.kinds = append(r.kinds, kind)
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()

	if kind != events.Loading {
		r.terminal <- kind
	}
}

// wait blocks until the next terminal event.
func (r *recorder) wait(t *testing.T) events.Kind {
	t.Helper()
	select {
	case kind := <-r.terminal:
		return kind
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal event")
		return 0
	}
}

func (r *recorder) fired() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

func (r *recorder) last() events.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[len(r.outcomes)-1]
}

func assertKinds(t *testing.T, got []events.Kind, want ...events.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

// collection serves a fixed-size collection of "row-N" strings. Positions in
// nulls are returned as null rows.
func collection(total int, nulls ...int) PageFunc[string] {
	isNull := make(map[int]bool, len(nulls))
	for _, n := range nulls {
		isNull[n] = true
	}

	return func(ctx context.Context, c pagination.Cursor) (*envelope.Envelope[envelope.DataPage[string]], error) {
		rows := make([]*string, 0, c.Limit)
		for i := c.Offset; i < c.Offset+c.Limit && i < total; i++ {
			if isNull[i] {
				rows = append(rows, nil)
				continue
			}
			v := fmt.Sprintf("row-%d", i)
			rows = append(rows, &v)
		}
		return envelope.Success(envelope.DataPage[string]{
			Total:  total,
			Limit:  c.Limit,
			Offset: c.Offset,
			Rows:   rows,
		}), nil
	}
}

// pages serves a fixed sequence of envelopes, one per call.
func pages(envs ...*envelope.Envelope[envelope.DataPage[string]]) PageFunc[string] {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, c pagination.Cursor) (*envelope.Envelope[envelope.DataPage[string]], error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(envs) {
			return nil, fmt.Errorf("unexpected fetch #%d", i+1)
		}
		env := envs[i]
		i++
		return env, nil
	}
}
