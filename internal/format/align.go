package format

import "math/bits"

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp returns n rounded up to the next multiple of align. align must be
// a power of two. The result wraps when n is within align of 2^64; use
// CheckedAlignUp when n is caller controlled.
//
// Example:
//
//	AlignUp(1, 8)       = 8
//	AlignUp(8, 8)       = 8
//	AlignUp(4097, 4096) = 8192
func AlignUp(n, align uint64) uint64 {
	mustPowerOfTwo(align)
	return (n + align - 1) &^ (align - 1)
}

// CheckedAlignUp is AlignUp that reports false instead of wrapping.
func CheckedAlignUp(n, align uint64) (uint64, bool) {
	mustPowerOfTwo(align)
	sum, carry := bits.Add64(n, align-1, 0)
	if carry != 0 {
		return 0, false
	}
	return sum &^ (align - 1), true
}

// AlignDown returns n rounded down to a multiple of align.
func AlignDown(n, align uint64) uint64 {
	mustPowerOfTwo(align)
	return n &^ (align - 1)
}

// IsAligned reports whether n is a multiple of align.
func IsAligned(n, align uint64) bool {
	mustPowerOfTwo(align)
	return n&(align-1) == 0
}

// AlignPage rounds n up to a whole number of pages.
func AlignPage(n uint64) uint64 {
	return AlignUp(n, PageSize)
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n == 0).
func NextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << (64 - bits.LeadingZeros64(n-1))
}

func mustPowerOfTwo(align uint64) {
	if !IsPowerOfTwo(align) {
		panic("format: alignment must be a power of two")
	}
}
