package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is used when a response carries neither Expires nor max-age.
const DefaultTTL = 5 * time.Minute

// FromResponse reads resp into an entry. The body is restored for the caller.
func FromResponse(resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		Body:        body,
		ETag:        resp.Header.Get("ETag"),
		Expires:     expiresFrom(resp.Header, time.Now()),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		CachedAt:    time.Now(),
	}

	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		if t, err := http.ParseTime(lastMod); err == nil {
			entry.LastModified = t
		}
	}

	return entry, nil
}

// expiresFrom derives the expiry from Cache-Control and Expires headers.
// no-store and no-cache yield now, i.e. an entry that is never stored.
func expiresFrom(headers http.Header, now time.Time) time.Time {
	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.TrimSpace(strings.ToLower(directive))
			switch {
			case directive == "no-store" || directive == "no-cache":
				return now
			case strings.HasPrefix(directive, "max-age="):
				if secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil && secs >= 0 {
					return now.Add(time.Duration(secs) * time.Second)
				}
			}
		}
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}

// Conditional reports whether entry carries a validator usable for a
// conditional request.
func Conditional(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders sets If-None-Match, or If-Modified-Since when the
// entry has no ETag.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}

// ToResponse rebuilds an HTTP response from a cached entry.
func ToResponse(entry *Entry, req *http.Request) *http.Response {
	header := make(http.Header)
	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	if entry.ETag != "" {
		header.Set("ETag", entry.ETag)
	}
	header.Set("Expires", entry.Expires.UTC().Format(http.TimeFormat))
	header.Set("X-Cache", "HIT")

	status := entry.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}
