package format

import (
	"math"
	"testing"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		n, align, want uint64
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{1, PageSize, PageSize},
		{PageSize, PageSize, PageSize},
		{PageSize + 1, PageSize, 2 * PageSize},
		{0x4444_4444_0001, 16, 0x4444_4444_0010},
	}
	for _, tc := range cases {
		if got := AlignUp(tc.n, tc.align); got != tc.want {
			t.Fatalf("AlignUp(%#x, %d) = %#x, want %#x", tc.n, tc.align, got, tc.want)
		}
	}
}

func TestAlignUpIdempotent(t *testing.T) {
	aligns := []uint64{1, 2, 8, 16, 64, PageSize, HugePageSize2MiB}
	inputs := []uint64{0, 1, 7, 8, 4095, 4096, 4097, 0x201008, 0x0100_0020_1a10, 0x4444_4444_0000 + 99}
	for _, a := range aligns {
		for _, n := range inputs {
			once := AlignUp(n, a)
			if twice := AlignUp(once, a); twice != once {
				t.Fatalf("AlignUp not idempotent for n=%#x align=%d: %#x != %#x", n, a, twice, once)
			}
			if !IsAligned(once, a) {
				t.Fatalf("AlignUp(%#x, %d) = %#x is not aligned", n, a, once)
			}
			if once < n {
				t.Fatalf("AlignUp(%#x, %d) moved down to %#x", n, a, once)
			}
		}
	}
}

func TestCheckedAlignUp(t *testing.T) {
	if _, ok := CheckedAlignUp(math.MaxUint64-3, 8); ok {
		t.Fatalf("expected wrap to be reported")
	}
	if got, ok := CheckedAlignUp(math.MaxUint64-7, 8); !ok || got != math.MaxUint64-7 {
		t.Fatalf("aligned value near the top should pass through, got %#x,%v", got, ok)
	}
	if got, ok := CheckedAlignUp(13, 4); !ok || got != 16 {
		t.Fatalf("CheckedAlignUp(13,4) = %d,%v", got, ok)
	}
}

func TestAlignDown(t *testing.T) {
	if got := AlignDown(0x201008, PageSize); got != 0x201000 {
		t.Fatalf("AlignDown = %#x", got)
	}
	if got := AlignDown(PageSize, PageSize); got != PageSize {
		t.Fatalf("AlignDown of aligned value changed it: %#x", got)
	}
}

func TestAlignRejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for alignment 12")
		}
	}()
	AlignUp(5, 12)
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 8: 8, 9: 16, 2047: 2048, 2048: 2048}
	for in, want := range cases {
		if got := NextPowerOfTwo(in); got != want {
			t.Fatalf("NextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
