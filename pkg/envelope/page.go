package envelope

// DataPage is the payload of a collection fetch: one batch of entities plus
// the pagination metadata the server used to produce it.
type DataPage[T any] struct {
	// Total is the number of entities available server-side.
	Total int `json:"total"`

	// Limit is the page size used for this fetch.
	Limit int `json:"limit"`

	// Offset is the cursor position used for this fetch.
	Offset int `json:"offset"`

	// Rows are in server order. A nil row was returned as null and is unusable.
	Rows []*T `json:"rows"`
}

// NewPage builds a page from values. Use Rows directly to include null rows.
func NewPage[T any](total, limit, offset int, rows ...T) DataPage[T] {
	page := DataPage[T]{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Rows:   make([]*T, 0, len(rows)),
	}
	for i := range rows {
		page.Rows = append(page.Rows, &rows[i])
	}
	return page
}

// Len returns the number of rows in the page, null rows included.
func (p DataPage[T]) Len() int {
	return len(p.Rows)
}
