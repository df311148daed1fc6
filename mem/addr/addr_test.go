package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	cases := []struct {
		v    uint64
		want bool
	}{
		{0, true},
		{0xb8000, true},
		{0x0000_7fff_ffff_ffff, true},
		{0x0000_8000_0000_0000, false},
		{0xffff_8000_0000_0000, true},
		{0xffff_ffff_ffff_ffff, true},
		{0x0001_0000_0000_0000, false},
		{0x_4444_4444_0000, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsCanonical(tc.v), "IsCanonical(%#x)", tc.v)
		_, err := TryNewVirtAddr(tc.v)
		if tc.want {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrNonCanonical)
		}
	}
}

func TestNewVirtAddrPanicsOnNonCanonical(t *testing.T) {
	assert.Panics(t, func() { NewVirtAddr(0x0000_8000_0000_0000) })
}

func TestTruncateSignExtends(t *testing.T) {
	assert.Equal(t, VirtAddr(0xffff_8000_0000_0000), NewVirtAddrTruncate(0x0000_8000_0000_0000))
	assert.Equal(t, VirtAddr(0x1234), NewVirtAddrTruncate(0x1234))
}

func TestIndices(t *testing.T) {
	// 0xabcd lives in P1 slot 10 at offset 0xbcd.
	v := NewVirtAddr(0xabcd)
	assert.Equal(t, uint16(0), v.P4Index())
	assert.Equal(t, uint16(0), v.P3Index())
	assert.Equal(t, uint16(0), v.P2Index())
	assert.Equal(t, uint16(10), v.P1Index())
	assert.Equal(t, uint16(0xbcd), v.PageOffset())

	heap := NewVirtAddr(0x_4444_4444_0000)
	assert.Equal(t, uint16(136), heap.P4Index())
	assert.Equal(t, uint16(273), heap.P3Index())
	assert.Equal(t, uint16(34), heap.P2Index())
	assert.Equal(t, uint16(64), heap.P1Index())
}

func TestIndexDecompositionIsLossless(t *testing.T) {
	inputs := []uint64{
		0, 0xabcd, 0xb8000, 0x201008, 0x0100_0020_1a10, 0x_4444_4444_0000,
		0x0000_1000_0000_0000, 0x0000_7fff_ffff_ffff, 0xffff_8000_0000_0000,
		0xffff_ffff_ffff_f123, 0xffff_ff7f_ffff_f000,
	}
	for _, in := range inputs {
		v := NewVirtAddr(in)
		got := FromIndices(v.P4Index(), v.P3Index(), v.P2Index(), v.P1Index(), v.PageOffset())
		require.Equal(t, v, got, "round trip of %#x", in)
	}

	// Walk every P4 slot and a spread of lower indices the other way round.
	for p4 := uint16(0); p4 < 512; p4 += 17 {
		for _, low := range []uint16{0, 1, 255, 511} {
			v := FromIndices(p4, low, 511-low, low, 0xfff-low)
			require.True(t, IsCanonical(uint64(v)))
			assert.Equal(t, p4, v.P4Index())
			assert.Equal(t, low, v.P3Index())
			assert.Equal(t, 511-low, v.P2Index())
			assert.Equal(t, low, v.P1Index())
			assert.Equal(t, 0xfff-low, v.PageOffset())
		}
	}
}

func TestPhysAddr(t *testing.T) {
	_, err := TryNewPhysAddr(1 << 52)
	assert.ErrorIs(t, err, ErrPhysTooWide)
	p := NewPhysAddr(0xb8123)
	assert.Equal(t, PhysAddr(0xb8000), p.AlignDown(Size4KiB))
	assert.Equal(t, PhysAddr(0xb9000), p.AlignUp(Size4KiB))
}

func TestPageAndFrame(t *testing.T) {
	p := PageContaining(NewVirtAddr(0x201008))
	assert.Equal(t, VirtAddr(0x201000), p.StartAddress())
	assert.Equal(t, VirtAddr(0x202000), p.Next().StartAddress())

	_, err := PageFromStart(NewVirtAddr(0x201008))
	assert.ErrorIs(t, err, ErrNotAligned)

	f := FrameContaining(NewPhysAddr(0xb8fff))
	assert.Equal(t, PhysAddr(0xb8000), f.StartAddress())
	_, err = FrameFromStart(NewPhysAddr(0xb8001))
	assert.ErrorIs(t, err, ErrNotAligned)
}

func TestPageRangeInclusive(t *testing.T) {
	start := NewVirtAddr(0x_4444_4444_0000)
	end := start.Add(100*1024 - 1)
	first, last := PageContaining(start), PageContaining(end)

	var pages []Page
	for p := range PageRangeInclusive(first, last) {
		pages = append(pages, p)
	}
	require.Len(t, pages, 25)
	assert.Equal(t, uint64(25), PageCount(first, last))
	assert.Equal(t, first, pages[0])
	assert.Equal(t, last, pages[24])
	for i := 1; i < len(pages); i++ {
		assert.Equal(t, pages[i-1].StartAddress().Add(Size4KiB), pages[i].StartAddress())
	}

	var none int
	for range PageRangeInclusive(last, first) {
		none++
	}
	assert.Zero(t, none)
}

func TestPageNextCrossesCanonicalHole(t *testing.T) {
	p := PageContaining(NewVirtAddr(0x0000_7fff_ffff_f000))
	assert.Equal(t, VirtAddr(0xffff_8000_0000_0000), p.Next().StartAddress())
}
