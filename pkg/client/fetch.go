package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/pageload/pkg/envelope"
	"github.com/Sternrassler/pageload/pkg/loader"
	"github.com/Sternrassler/pageload/pkg/pagination"
)

// PageFetcher returns a page function that GETs endpoint with the cursor
// encoded as limit/offset query parameters. query is copied, never modified.
func PageFetcher[T any](c *Client, endpoint string, query url.Values) loader.PageFunc[T] {
	return func(ctx context.Context, cursor pagination.Cursor) (*envelope.Envelope[envelope.DataPage[T]], error) {
		q := url.Values{}
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		q.Set("limit", strconv.Itoa(cursor.Limit))
		q.Set("offset", strconv.Itoa(cursor.Offset))

		return getEnvelope[envelope.DataPage[T]](ctx, c, endpoint, q)
	}
}

// ItemFetcher returns an item function that GETs path(param).
func ItemFetcher[P, T any](c *Client, path func(P) string) loader.ItemFunc[P, T] {
	return func(ctx context.Context, param P) (*envelope.Envelope[T], error) {
		return getEnvelope[T](ctx, c, path(param), nil)
	}
}

// getEnvelope performs the request and decodes the envelope body. Error
// statuses whose body is an envelope are returned as that envelope so the
// server's code and message reach the loader.
func getEnvelope[T any](ctx context.Context, c *Client, endpoint string, query url.Values) (*envelope.Envelope[T], error) {
	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		if env := failureEnvelope[T](err); env != nil {
			return env, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	env, decodeErr := envelope.Decode[T](bytes.NewReader(body))
	if resp.StatusCode >= http.StatusBadRequest {
		if decodeErr == nil && !env.Succeeded() {
			return env, nil
		}
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return env, nil
}

// failureEnvelope returns the failure envelope carried by the last error
// answer of an exhausted retry, or nil.
func failureEnvelope[T any](err error) *envelope.Envelope[T] {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || len(httpErr.Body) == 0 {
		return nil
	}
	env, decodeErr := envelope.Decode[T](bytes.NewReader(httpErr.Body))
	if decodeErr != nil || env.Succeeded() {
		return nil
	}
	return env
}

// IsHTTPStatus reports whether err is an HTTPError with the given status.
func IsHTTPStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}
