package validator

// LaneSize is the width of the fixed lanes the row is reconciled over.
const LaneSize = 32

// rule30 applies the local automaton rule to every bit of x in parallel.
func rule30(x uint64) uint64 {
	return x ^ ((x << 1) | (x << 2))
}

// NormalizePair repairs the carry lost at one lane seam. a is the last byte
// of the left lane, b the first byte of the right lane, both as computed by
// peers in isolation. The low bit of a is carried into b, the rule is applied
// to both, and the resulting top bit of b is carried back into a. Pure:
// the result depends only on (a, b).
func NormalizePair(a, b byte) (byte, byte) {
	wa := uint64(a)
	wb := uint64(b)

	carry := wa & 1
	wa >>= 1
	wb |= carry << 63

	wa = rule30(wa)
	wb = rule30(wb)

	msb := wb >> 63
	wb &= (1 << 63) - 1
	wa = (wa << 1) | msb

	return byte(wa), byte(wb)
}

// Normalize fixes every lane seam of row in place and returns the corrected
// row as a flat copy (the round's normalized result). row's length must be a
// whole number of lanes. With fewer than two lanes there is no seam and the
// result is nil.
//
// Each seam is a function of its own two raw edge bytes only: seam i writes
// the last byte of lane i and the first byte of lane i+1, neither of which
// seam i+1 reads.
func Normalize(row []byte) []byte {
	if len(row)%LaneSize != 0 {
		panic("row length is not lane-aligned")
	}

	lanes := len(row) / LaneSize
	if lanes < 2 {
		return nil
	}

	for i := 0; i < lanes-1; i++ {
		left := i*LaneSize + LaneSize - 1
		right := (i + 1) * LaneSize
		row[left], row[right] = NormalizePair(row[left], row[right])
	}

	normalized := make([]byte, len(row))
	copy(normalized, row)
	return normalized
}
