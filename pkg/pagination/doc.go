// Package pagination tracks how much of a remote collection has been loaded
// and whether more remains.
//
// A PageState accumulates pages fetched with a limit/offset cursor:
//
//	state := pagination.New[Order]()
//	cursor := state.Cursor() // limit=8 offset=0
//	// fetch a page at cursor ...
//	more := state.Apply(page)
//
// Apply replaces the loaded rows when the page is the first one (offset < limit)
// and appends otherwise. Null rows are not stored; they are counted as skipped
// and still consume the server total, so
//
//	Size() + Skipped() <= Total()
//
// holds after every Apply. The offset advances by exactly one limit after a page
// is applied, and only while HasMore() is true.
//
// A PageState is not safe for concurrent mutation. It is owned by a single
// loader which serializes access to it.
package pagination
