package cache

import (
	"time"
)

// Entry is a cached response body with its validators.
type Entry struct {
	// Body is the raw envelope body.
	Body []byte `json:"body"`

	// ETag is sent back as If-None-Match.
	ETag string `json:"etag,omitempty"`

	// LastModified is sent back as If-Modified-Since when no ETag is known.
	LastModified time.Time `json:"last_modified,omitempty"`

	// Expires is when the entry stops being served.
	Expires time.Time `json:"expires"`

	// StatusCode of the cached response.
	StatusCode int `json:"status_code"`

	// ContentType of the cached response.
	ContentType string `json:"content_type,omitempty"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether the entry is past its expiry.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the time until expiry, or 0 once expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
