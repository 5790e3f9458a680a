package cache

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultNamespace prefixes every key written by a Manager.
const DefaultNamespace = "pageload"

// Key identifies a cached response.
type Key struct {
	// Endpoint is the request path, e.g. "/v1/orders".
	Endpoint string

	// Query holds the request query, including the limit/offset cursor.
	Query url.Values
}

// String generates a deterministic key without namespace.
// Format: endpoint:key1=v1,v2:key2=v3
//
// Example:
//
//	v1/orders:limit=8:offset=16
func (k Key) String() string {
	parts := make([]string, 0, len(k.Query)+1)
	parts = append(parts, strings.Trim(k.Endpoint, "/"))

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, name+"="+strings.Join(k.Query[name], ","))
	}

	return strings.Join(parts, ":")
}
