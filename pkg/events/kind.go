// Package events notifies consumers of fetch-state transitions through a
// small table of typed callback slots, one per event kind.
package events

import (
	"fmt"

	"github.com/Sternrassler/pageload/pkg/envelope"
)

// Kind identifies a fetch-state transition.
type Kind int

const (
	// Loading is fired when a fetch starts.
	Loading Kind = iota

	// LoadMore is fired by list loaders when a page was applied and more remain.
	LoadMore

	// LoadSuccess is fired by item loaders when an entity was loaded.
	LoadSuccess

	// NoData is fired when the fetch succeeded without payload, or when a list
	// loader reached the end of its collection.
	NoData

	// LoadFailure is fired on transport or server-reported failure.
	LoadFailure

	numKinds
)

var kindNames = [numKinds]string{
	Loading:     "LOADING",
	LoadMore:    "LOAD_MORE",
	LoadSuccess: "LOAD_SUCCESS",
	NoData:      "NO_DATA",
	LoadFailure: "LOAD_FAILURE",
}

// String returns the canonical event name.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// Kinds returns all known kinds in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a canonical event name back to its kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// Outcome is the argument passed to every callback.
type Outcome struct {
	Code    int
	Message string
}

// Success is the outcome carried by non-failure events.
var Success = Outcome{Code: envelope.CodeSuccess, Message: envelope.MessageSuccess}

// Unknown is the outcome used for transport failures.
var Unknown = Outcome{Code: envelope.CodeUnknown, Message: envelope.MessageUnknown}

// Empty is the outcome used when a successful fetch carried no payload.
var Empty = Outcome{Code: envelope.CodeEmpty, Message: envelope.MessageEmpty}

// IsSuccess reports whether the outcome carries the success sentinel.
func (o Outcome) IsSuccess() bool {
	return o.Code == envelope.CodeSuccess
}

// Callback receives the outcome of an event.
type Callback func(Outcome)
