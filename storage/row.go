package storage

import "fmt"

// SharedRow hands the row store to concurrently running exchange workers.
// It performs no locking: every worker receives a RowView covering only its
// assigned byte range, and the scheduler guarantees those ranges never
// overlap. Sharing a SharedRow shares the backing store; the store lives as
// long as the longest-lived handle.
type SharedRow struct {
	store *MappedFile
}

// NewSharedRow wraps store for shared mutation. The store must already be
// large enough for any view taken from it.
func NewSharedRow(store *MappedFile) *SharedRow {
	return &SharedRow{store: store}
}

// Store returns the underlying mapped file.
func (r *SharedRow) Store() *MappedFile { return r.store }

// View returns a window over [from, to). Views over disjoint ranges may be
// used from different goroutines simultaneously.
func (r *SharedRow) View(from, to int64) RowView {
	if from < 0 || to < from || to > r.store.Len() {
		panic(fmt.Sprintf("row view [%d, %d) out of range (len %d)", from, to, r.store.Len()))
	}
	return RowView{row: r.store, from: from, to: to}
}

// RowView is a bounded window into the shared row. All offsets are relative
// to the window start; access outside the window panics, so a worker holding
// a view structurally cannot touch another worker's range.
type RowView struct {
	row  *MappedFile
	from int64
	to   int64
}

// Len returns the window length in bytes.
func (v RowView) Len() int64 { return v.to - v.from }

// Slice returns the window bytes [i, j) as a direct view into the row.
func (v RowView) Slice(i, j int64) []byte {
	if i < 0 || j < i || j > v.Len() {
		panic(fmt.Sprintf("slice [%d, %d) outside view of length %d", i, j, v.Len()))
	}
	return v.row.Range(v.from+i, v.from+j)
}
