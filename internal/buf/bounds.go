package buf

import "math/bits"

// AddU64 adds a and b, returning ok = false when the result would wrap.
func AddU64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// SubU64 subtracts b from a, returning ok = false when the result would wrap.
func SubU64(a, b uint64) (uint64, bool) {
	diff, borrow := bits.Sub64(a, b, 0)
	return diff, borrow == 0
}

// MulU64 multiplies a and b, returning ok = false when the result needs more than 64 bits.
func MulU64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
// Offsets are physical addresses, so they arrive as uint64.
func Slice(b []byte, off, n uint64) ([]byte, bool) {
	end, ok := AddU64(off, n)
	if !ok || end > uint64(len(b)) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n uint64) bool {
	_, ok := Slice(b, off, n)
	return ok
}
