package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowBytes(t *testing.T) {
	assert.EqualValues(t, 1, RowBytes(1))
	assert.EqualValues(t, 1, RowBytes(3))
	assert.EqualValues(t, 2, RowBytes(4))
	assert.EqualValues(t, 26, RowBytes(100))
}

func TestZeroPeersYieldsNoAssignments(t *testing.T) {
	for _, compat := range []bool{false, true} {
		s := Scheduler{CompatSplit: compat}
		assert.Nil(t, s.Assignments(100, 0))
	}
}

func TestSplitEvenProperties(t *testing.T) {
	for _, byteCount := range []int64{1, 2, 7, 31, 32, 100, 4096, 4097} {
		for n := 1; n <= 9; n++ {
			assignments := splitEven(byteCount, n)
			require.Len(t, assignments, n)

			var total int64
			for i, a := range assignments {
				assert.Equal(t, i, a.Index)
				require.GreaterOrEqual(t, a.Len(), int64(0))
				if i > 0 {
					// ordered and disjoint: each chunk starts where the
					// previous one ended
					require.Equal(t, assignments[i-1].End, a.Start,
						"B=%d n=%d chunk %d", byteCount, n, i)
				}
				total += a.Len()
			}

			assert.EqualValues(t, 0, assignments[0].Start)
			assert.Equal(t, byteCount, assignments[n-1].End, "chunks cover the row exactly")
			assert.Equal(t, byteCount, total)

			// sizes differ by at most one byte
			first, last := assignments[0].Len(), assignments[n-1].Len()
			assert.LessOrEqual(t, first-last, int64(1))
		}
	}
}

func TestSplitLegacyFormula(t *testing.T) {
	// odd connection count: chunkSize = B/N
	assignments := splitLegacy(100, 3)
	require.Len(t, assignments, 3)
	for i, a := range assignments {
		assert.EqualValues(t, int64(i)*33, a.Start)
		assert.EqualValues(t, 33, a.Len())
	}

	// even connection count: chunkSize = B/N + 1, overrunning the row span
	assignments = splitLegacy(100, 4)
	require.Len(t, assignments, 4)
	for _, a := range assignments {
		assert.EqualValues(t, 26, a.Len())
	}
	assert.EqualValues(t, 104, assignments[3].End)
}

func TestSplitLegacyDisjointOrdered(t *testing.T) {
	for _, byteCount := range []int64{1, 5, 64, 999} {
		for n := 1; n <= 8; n++ {
			assignments := splitLegacy(byteCount, n)
			require.Len(t, assignments, n)
			for i := 1; i < n; i++ {
				require.Equal(t, assignments[i-1].End, assignments[i].Start)
			}
		}
	}
}

// Round 4 with three peers is the degenerate legacy case: byteCount = 2,
// chunkSize = 2/3 = 0. Every assignment is empty and the round exchanges
// nothing, but nothing panics and the round still completes.
func TestSplitLegacyDegenerateZeroChunk(t *testing.T) {
	s := Scheduler{CompatSplit: true}

	assignments := s.Assignments(4, 3)
	require.Len(t, assignments, 3)
	for _, a := range assignments {
		assert.EqualValues(t, 0, a.Len())
	}

	// the even split keeps one byte per chunk until the row runs out
	assignments = Scheduler{}.Assignments(4, 3)
	require.Len(t, assignments, 3)
	assert.EqualValues(t, 1, assignments[0].Len())
	assert.EqualValues(t, 1, assignments[1].Len())
	assert.EqualValues(t, 0, assignments[2].Len())
}
