package pagination

import (
	"github.com/Sternrassler/pageload/pkg/envelope"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLimit is the page size used until a page or caller sets another one.
const DefaultLimit = 8

// Cursor identifies the slice of a collection to fetch next.
type Cursor struct {
	Limit  int
	Offset int
}

// PageNumber returns the 1-based page the cursor points at.
func (c Cursor) PageNumber() int {
	if c.Limit <= 0 {
		return 1
	}
	return c.Offset/c.Limit + 1
}

// appliedPage remembers what the most recent Apply added so a repeated fetch
// of the same cursor can be rolled back instead of duplicated.
type appliedPage struct {
	valid   bool
	offset  int
	rows    int
	skipped int
}

// PageState accumulates the pages of one collection.
type PageState[T any] struct {
	total   int
	skipped int
	limit   int
	offset  int
	rows    []T

	last   appliedPage
	logger zerolog.Logger
}

// New creates an empty page state with DefaultLimit.
func New[T any]() *PageState[T] {
	return &PageState[T]{
		limit:  DefaultLimit,
		logger: log.With().Str("component", "pagination").Logger(),
	}
}

// WithLogger replaces the logger used for data-quality warnings.
func (s *PageState[T]) WithLogger(logger zerolog.Logger) *PageState[T] {
	s.logger = logger
	return s
}

// Apply records a fetched page and reports whether the cursor advanced, i.e.
// whether more pages remain.
func (s *PageState[T]) Apply(page envelope.DataPage[T]) bool {
	s.setTotal(page.Total)
	if !s.SetLimit(page.Limit) {
		s.logger.Warn().Int("limit", page.Limit).Msg("Ignoring non-positive page limit")
	}
	if !s.SetOffset(page.Offset) {
		s.logger.Warn().Int("offset", page.Offset).Msg("Ignoring negative page offset")
	}

	if s.IsFirstPage() {
		s.rows = make([]T, 0, len(page.Rows))
		s.skipped = 0
	} else if s.last.valid && s.last.offset == s.offset {
		s.rows = s.rows[:len(s.rows)-s.last.rows]
		s.skipped -= s.last.skipped
	}

	added, skipped := 0, 0
	for i, row := range page.Rows {
		if row == nil {
			skipped++
			s.logger.Warn().
				Int("offset", s.offset).
				Int("index", i).
				Msg("Skipping null row")
			continue
		}
		s.rows = append(s.rows, *row)
		added++
	}
	s.skipped += skipped
	s.last = appliedPage{valid: true, offset: s.offset, rows: added, skipped: skipped}

	if consumed := len(s.rows) + s.skipped; consumed > s.total {
		s.logger.Warn().
			Int("total", s.total).
			Int("consumed", consumed).
			Msg("Page exceeds reported total, raising total")
		s.total = consumed
	}

	if !s.HasMore() {
		return false
	}
	s.offset += s.limit
	return true
}

// Item returns the entity at position, or false when out of range.
func (s *PageState[T]) Item(position int) (T, bool) {
	if position < 0 || position >= len(s.rows) {
		var zero T
		return zero, false
	}
	return s.rows[position], true
}

// Rows returns a copy of the loaded entities in server order.
func (s *PageState[T]) Rows() []T {
	out := make([]T, len(s.rows))
	copy(out, s.rows)
	return out
}

// Size returns the number of loaded entities.
func (s *PageState[T]) Size() int { return len(s.rows) }

// Total returns the last known server-side total.
func (s *PageState[T]) Total() int { return s.total }

// Skipped returns the number of null rows dropped so far.
func (s *PageState[T]) Skipped() int { return s.skipped }

// HasSkipped reports whether any row has been dropped.
func (s *PageState[T]) HasSkipped() bool { return s.skipped > 0 }

// Limit returns the page size.
func (s *PageState[T]) Limit() int { return s.limit }

// Offset returns the cursor position of the next fetch.
func (s *PageState[T]) Offset() int { return s.offset }

// Cursor returns the position of the next fetch.
func (s *PageState[T]) Cursor() Cursor {
	return Cursor{Limit: s.limit, Offset: s.offset}
}

// PageNumber returns the 1-based page number of the cursor.
func (s *PageState[T]) PageNumber() int { return s.Cursor().PageNumber() }

// IsFirstPage reports whether the cursor points at page 1.
func (s *PageState[T]) IsFirstPage() bool { return s.PageNumber() == 1 }

// HasData reports whether at least one entity is loaded.
func (s *PageState[T]) HasData() bool { return len(s.rows) > 0 }

// HasMore reports whether the server holds entities not yet consumed.
func (s *PageState[T]) HasMore() bool { return len(s.rows)+s.skipped < s.total }

// SetLimit sets the page size. Non-positive values are rejected.
func (s *PageState[T]) SetLimit(limit int) bool {
	if limit <= 0 {
		return false
	}
	s.limit = limit
	return true
}

// SetOffset sets the cursor position. Negative values are rejected.
func (s *PageState[T]) SetOffset(offset int) bool {
	if offset < 0 {
		return false
	}
	s.offset = offset
	return true
}

func (s *PageState[T]) setTotal(total int) {
	if total < 0 {
		total = 0
	}
	s.total = total
}

// Reset returns the state to empty. The page size is kept.
func (s *PageState[T]) Reset() {
	s.total = 0
	s.skipped = 0
	s.offset = 0
	s.rows = nil
	s.last = appliedPage{}
}
