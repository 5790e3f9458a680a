package pagination

import (
	"reflect"
	"testing"

	"github.com/Sternrassler/pageload/pkg/envelope"
)

func page(total, limit, offset int, rows ...string) envelope.DataPage[string] {
	return envelope.NewPage(total, limit, offset, rows...)
}

func rowsOf(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = string(rune('a' + i%26))
	}
	return rows
}

func assertCounts(t *testing.T, s *PageState[string]) {
	t.Helper()
	if s.Size()+s.Skipped() > s.Total() {
		t.Errorf("Size()+Skipped() = %d, exceeds Total() = %d", s.Size()+s.Skipped(), s.Total())
	}
	if s.HasMore() != (s.Size()+s.Skipped() < s.Total()) {
		t.Errorf("HasMore() = %v inconsistent with size=%d skipped=%d total=%d",
			s.HasMore(), s.Size(), s.Skipped(), s.Total())
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New[string]()

	if s.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", s.Limit(), DefaultLimit)
	}
	if s.Offset() != 0 || s.Total() != 0 || s.Size() != 0 || s.Skipped() != 0 {
		t.Errorf("Expected empty state, got offset=%d total=%d size=%d skipped=%d",
			s.Offset(), s.Total(), s.Size(), s.Skipped())
	}
	if s.PageNumber() != 1 || !s.IsFirstPage() {
		t.Errorf("PageNumber() = %d, want 1", s.PageNumber())
	}
	if s.HasData() || s.HasMore() || s.HasSkipped() {
		t.Error("Empty state should report no data, no more, nothing skipped")
	}
}

func TestApply_PaginationAdvance(t *testing.T) {
	s := New[string]()

	if more := s.Apply(page(20, 8, 0, rowsOf(8)...)); !more {
		t.Error("Apply(page 1) should report more")
	}
	if s.Offset() != 8 {
		t.Errorf("Offset() after page 1 = %d, want 8", s.Offset())
	}
	if !s.HasMore() {
		t.Error("HasMore() after page 1 should be true")
	}
	assertCounts(t, s)

	s.Apply(page(20, 8, s.Offset(), rowsOf(8)...))
	if s.Offset() != 16 {
		t.Errorf("Offset() after page 2 = %d, want 16", s.Offset())
	}
	assertCounts(t, s)

	if more := s.Apply(page(20, 8, s.Offset(), rowsOf(4)...)); more {
		t.Error("Apply(page 3) should report no more")
	}
	if s.HasMore() {
		t.Error("HasMore() after last page should be false")
	}
	if s.Offset() != 16 {
		t.Errorf("Offset() after last page = %d, want 16 (no advance)", s.Offset())
	}
	if s.Size() != 20 {
		t.Errorf("Size() = %d, want 20", s.Size())
	}
	assertCounts(t, s)
}

func TestApply_FirstPageReplaces(t *testing.T) {
	s := New[string]()

	s.Apply(page(4, 2, 0, "a", "b"))
	s.Reset()
	s.Apply(page(4, 2, 0, "c", "d"))

	if got := s.Rows(); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("Rows() = %v, want [c d]", got)
	}
}

func TestApply_FirstPageReplacesWithoutReset(t *testing.T) {
	s := New[string]()

	s.Apply(page(4, 2, 0, "a", "b"))
	s.Apply(page(4, 2, 2, "c", "d"))
	s.Apply(page(4, 2, 0, "e", "f"))

	if got := s.Rows(); !reflect.DeepEqual(got, []string{"e", "f"}) {
		t.Errorf("Rows() = %v, want [e f]", got)
	}
	assertCounts(t, s)
}

func TestApply_LaterPageAppends(t *testing.T) {
	s := New[string]()

	s.Apply(page(4, 2, 0, "a", "b"))
	s.Apply(page(4, 2, s.Offset(), "c", "d"))

	if got := s.Rows(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Rows() = %v, want [a b c d]", got)
	}
	if s.PageNumber() != 2 {
		t.Errorf("PageNumber() = %d, want 2", s.PageNumber())
	}
}

func TestApply_ReplayOfLastPageDoesNotDuplicate(t *testing.T) {
	s := New[string]()

	s.Apply(page(5, 2, 0, "a", "b"))
	s.Apply(page(5, 2, 2, "c", "d"))
	s.Apply(page(5, 2, 4, "e"))

	// Cursor stays at the last page, fetching again returns the same slice.
	s.Apply(page(5, 2, s.Offset(), "e"))

	if got := s.Rows(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e"}) {
		t.Errorf("Rows() = %v, want [a b c d e]", got)
	}
	assertCounts(t, s)
}

func TestApply_NullAccounting(t *testing.T) {
	s := New[string]()
	a, c := "a", "c"

	s.Apply(envelope.DataPage[string]{
		Total:  10,
		Limit:  3,
		Offset: 0,
		Rows:   []*string{&a, nil, &c},
	})

	if s.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", s.Skipped())
	}
	if !s.HasSkipped() {
		t.Error("HasSkipped() should be true")
	}
	if got := s.Rows(); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Rows() = %v, want [a c]", got)
	}
	if s.Offset() != 3 {
		t.Errorf("Offset() = %d, want 3", s.Offset())
	}
	assertCounts(t, s)

	// Skipped rows count toward the total
	d := "d"
	s.Apply(envelope.DataPage[string]{Total: 4, Limit: 3, Offset: 3, Rows: []*string{&d}})
	if s.HasMore() {
		t.Error("HasMore() should be false once rows+skipped reach total")
	}
	assertCounts(t, s)
}

func TestApply_RowsExceedingTotal(t *testing.T) {
	s := New[string]()

	s.Apply(page(1, 8, 0, "a", "b", "c"))

	if s.Total() != 3 {
		t.Errorf("Total() = %d, want 3 (raised to consumed rows)", s.Total())
	}
	assertCounts(t, s)
}

func TestApply_InvalidMetadata(t *testing.T) {
	s := New[string]()

	s.Apply(page(-5, 0, -1, "a"))

	if s.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d (non-positive limit rejected)", s.Limit(), DefaultLimit)
	}
	if s.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0 (negative offset rejected)", s.Offset())
	}
	if s.Total() < 0 {
		t.Errorf("Total() = %d, must never be negative", s.Total())
	}
	assertCounts(t, s)
}

func TestSetters(t *testing.T) {
	s := New[string]()

	tests := []struct {
		name      string
		set       func() bool
		wantOK    bool
		wantLimit int
		wantOff   int
	}{
		{"positive limit", func() bool { return s.SetLimit(20) }, true, 20, 0},
		{"zero limit", func() bool { return s.SetLimit(0) }, false, 20, 0},
		{"negative limit", func() bool { return s.SetLimit(-3) }, false, 20, 0},
		{"positive offset", func() bool { return s.SetOffset(40) }, true, 20, 40},
		{"zero offset", func() bool { return s.SetOffset(0) }, true, 20, 0},
		{"negative offset", func() bool { return s.SetOffset(-1) }, false, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok := tt.set(); ok != tt.wantOK {
				t.Errorf("setter returned %v, want %v", ok, tt.wantOK)
			}
			if s.Limit() != tt.wantLimit {
				t.Errorf("Limit() = %d, want %d", s.Limit(), tt.wantLimit)
			}
			if s.Offset() != tt.wantOff {
				t.Errorf("Offset() = %d, want %d", s.Offset(), tt.wantOff)
			}
		})
	}
}

func TestItem_OutOfRange(t *testing.T) {
	s := New[string]()

	if _, ok := s.Item(-1); ok {
		t.Error("Item(-1) on empty state should not be found")
	}
	if _, ok := s.Item(s.Size()); ok {
		t.Error("Item(Size()) on empty state should not be found")
	}

	s.Apply(page(3, 8, 0, "a", "b", "c"))

	if v, ok := s.Item(1); !ok || v != "b" {
		t.Errorf("Item(1) = (%q, %v), want (b, true)", v, ok)
	}
	if _, ok := s.Item(-1); ok {
		t.Error("Item(-1) should not be found")
	}
	if _, ok := s.Item(s.Size()); ok {
		t.Error("Item(Size()) should not be found")
	}
}

func TestReset_Idempotent(t *testing.T) {
	s := New[string]()

	s.Reset()
	s.Reset()
	if s.HasData() || s.Total() != 0 || s.Offset() != 0 || s.Skipped() != 0 {
		t.Error("Reset() on empty state should leave it empty")
	}

	s.SetLimit(4)
	s.Apply(page(10, 4, 0, "a", "b", "c", "d"))
	s.Reset()

	if s.HasData() || s.Total() != 0 || s.Offset() != 0 || s.Skipped() != 0 {
		t.Errorf("Reset() left state: size=%d total=%d offset=%d skipped=%d",
			s.Size(), s.Total(), s.Offset(), s.Skipped())
	}
	if s.Limit() != 4 {
		t.Errorf("Limit() after Reset() = %d, want 4 (page size kept)", s.Limit())
	}
}

func TestCursor_PageNumber(t *testing.T) {
	tests := []struct {
		cursor   Cursor
		expected int
	}{
		{Cursor{Limit: 8, Offset: 0}, 1},
		{Cursor{Limit: 8, Offset: 7}, 1},
		{Cursor{Limit: 8, Offset: 8}, 2},
		{Cursor{Limit: 8, Offset: 20}, 3},
		{Cursor{Limit: 0, Offset: 20}, 1},
		{Cursor{Limit: -2, Offset: 5}, 1},
	}

	for _, tt := range tests {
		if got := tt.cursor.PageNumber(); got != tt.expected {
			t.Errorf("Cursor%+v.PageNumber() = %d, want %d", tt.cursor, got, tt.expected)
		}
	}
}
