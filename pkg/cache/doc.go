// Package cache stores fetched envelope bodies in Redis so repeated page
// requests can be served conditionally.
//
// Entries are keyed by endpoint and query (which includes the page cursor):
//
//	key := cache.Key{
//		Endpoint: "/v1/orders",
//		Query:    url.Values{"limit": {"8"}, "offset": {"16"}},
//	}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrMiss) {
//		// fetch from the origin
//	}
//
// An entry lives until its Expires time, taken from the Expires or
// Cache-Control max-age response headers (DefaultTTL when neither is set).
// Entries carrying an ETag or Last-Modified value allow conditional requests:
//
//	if cache.Conditional(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// A 304 Not Modified answer is then served from the entry via ToResponse, and
// its new expiry is recorded with Manager.Touch.
//
// Metrics (pageload_cache_*) are exported through promauto, see metrics.go.
package cache
