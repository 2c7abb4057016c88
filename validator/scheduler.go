package validator

// Assignment is one peer's byte range of the row for a round. Ranges of one
// round are pairwise disjoint and ordered by connection index; a zero-length
// range means the peer sits the round out.
type Assignment struct {
	Index int
	Start int64
	End   int64
}

// Len returns the assignment's length in bytes.
func (a Assignment) Len() int64 { return a.End - a.Start }

// RowBytes returns the number of row bytes in play at the given round. The
// workload grows by one byte every four rounds.
func RowBytes(round uint64) int64 {
	return int64(round/4 + 1)
}

// Scheduler partitions the active row span among peer connections.
type Scheduler struct {
	// CompatSplit selects the legacy split formula for wire compatibility
	// with peer networks that expect it. The default even split covers the
	// row exactly.
	CompatSplit bool
}

// Assignments partitions RowBytes(round) among n connections. n == 0 yields
// no assignments; the caller skips exchange and reconciliation.
func (s Scheduler) Assignments(round uint64, n int) []Assignment {
	if n == 0 {
		return nil
	}
	byteCount := RowBytes(round)
	if s.CompatSplit {
		return splitLegacy(byteCount, n)
	}
	return splitEven(byteCount, n)
}

// splitEven gives the first byteCount%n chunks one extra byte, so the chunks
// cover [0, byteCount) exactly.
func splitEven(byteCount int64, n int) []Assignment {
	base := byteCount / int64(n)
	extra := byteCount % int64(n)

	assignments := make([]Assignment, n)
	var cursor int64
	for i := 0; i < n; i++ {
		size := base
		if int64(i) < extra {
			size++
		}
		assignments[i] = Assignment{Index: i, Start: cursor, End: cursor + size}
		cursor += size
	}
	return assignments
}

// splitLegacy reproduces the historical formula: chunkSize is byteCount/n,
// bumped by one when n is even. A non-divisible byteCount leaves a tail gap
// or overruns it; callers must size the row for the largest End.
func splitLegacy(byteCount int64, n int) []Assignment {
	chunkSize := byteCount / int64(n)
	if n%2 == 0 {
		chunkSize++
	}

	assignments := make([]Assignment, n)
	for i := 0; i < n; i++ {
		assignments[i] = Assignment{
			Index: i,
			Start: int64(i) * chunkSize,
			End:   int64(i+1) * chunkSize,
		}
	}
	return assignments
}
