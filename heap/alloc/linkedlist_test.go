package alloc

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

func newLinkedList(t *testing.T) *LinkedList {
	t.Helper()
	a := NewLinkedList(newTestMemory(t))
	a.Init(testHeapStart, testHeapSize)
	return a
}

func TestLinkedListInitIsOneRegion(t *testing.T) {
	a := newLinkedList(t)
	regions := slices.Collect(a.Regions())
	assert.Equal(t, []Region{{Addr: testHeapStart, Size: testHeapSize}}, regions)
	assert.Equal(t, uint64(testHeapSize), a.Stats().FreeBytes)
}

func TestLinkedListExcessTailIsReadded(t *testing.T) {
	a := newLinkedList(t)
	p, err := a.Alloc(MustLayout(24, 8))
	require.NoError(t, err)
	assert.Equal(t, testHeapStart, p)

	regions := slices.Collect(a.Regions())
	require.Len(t, regions, 1)
	assert.Equal(t, testHeapStart+24, regions[0].Addr)
	assert.Equal(t, uint64(testHeapSize-24), regions[0].Size)
}

func TestLinkedListFreedBlockIsReused(t *testing.T) {
	a := newLinkedList(t)
	l := MustLayout(64, 8)
	p, err := a.Alloc(l)
	require.NoError(t, err)
	_, err = a.Alloc(l)
	require.NoError(t, err)

	a.Dealloc(p, l)
	for _, smaller := range []Layout{MustLayout(64, 8), MustLayout(48, 16), MustLayout(1, 1)} {
		q, err := a.Alloc(smaller)
		require.NoError(t, err)
		assert.Equal(t, p, q, "freed block serves %s", smaller)
		a.Dealloc(q, smaller)
	}
}

func TestLinkedListNoCoalescing(t *testing.T) {
	a := newLinkedList(t)
	l := MustLayout(32, 8)
	var ptrs []addr.VirtAddr
	for range 4 {
		p, err := a.Alloc(l)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		a.Dealloc(p, l)
	}
	st := a.Stats()
	assert.Equal(t, 5, st.FreeRegions, "four freed blocks plus the tail")
	assert.Equal(t, uint64(testHeapSize), st.FreeBytes)
	assert.Zero(t, st.Live)
}

func TestLinkedListExhaustion(t *testing.T) {
	a := newLinkedList(t)
	_, err := a.Alloc(MustLayout(testHeapSize+8, 8))
	assert.ErrorIs(t, err, ErrNoSpace)

	p, err := a.Alloc(MustLayout(testHeapSize, 8))
	require.NoError(t, err)
	assert.Equal(t, testHeapStart, p)
	assert.Zero(t, a.Stats().FreeRegions)

	_, err = a.Alloc(word())
	assert.ErrorIs(t, err, ErrNoSpace)
	assert.Equal(t, 2, a.Stats().AllocFailures)
}

func TestAllocFromRegion(t *testing.T) {
	var l freeList
	r := Region{Addr: 0x1000, Size: 64}
	tests := []struct {
		name        string
		size, align uint64
		want        addr.VirtAddr
		err         error
	}{
		{"exact fit", 64, 8, 0x1000, nil},
		{"tail holds a node", 48, 8, 0x1000, nil},
		{"tail too small for a node", 56, 8, 0, ErrUnfit},
		{"aligned start", 32, 32, 0x1000, nil},
		{"alignment pushes past end", 16, 0x2000, 0, ErrUnfit},
		{"too big", 72, 8, 0, ErrUnfit},
		{"size overflow", ^uint64(0), 8, 0, ErrUnfit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.AllocFromRegion(r, tt.size, tt.align)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// Front padding is allowed; the alignment gap is simply lost.
	got, err := l.AllocFromRegion(Region{Addr: 0x1008, Size: 64}, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, addr.VirtAddr(0x1010), got)
}

func TestFindFreeRegionFirstFitUnlinks(t *testing.T) {
	mem := newTestMemory(t)
	l := &freeList{mem: mem}
	// Chain order is insertion order reversed: c, b, a.
	a, b, c := testHeapStart, testHeapStart+0x100, testHeapStart+0x200
	l.AddFreeRegion(a, 64)
	l.AddFreeRegion(b, 32)
	l.AddFreeRegion(c, 16)

	r, at, ok := l.FindFreeRegion(32, 8)
	require.True(t, ok)
	assert.Equal(t, Region{Addr: b, Size: 32}, r)
	assert.Equal(t, b, at)

	var left []addr.VirtAddr
	for r := range l.regions() {
		left = append(left, r.Addr)
	}
	assert.Equal(t, []addr.VirtAddr{c, a}, left)

	_, _, ok = l.FindFreeRegion(128, 8)
	assert.False(t, ok)
}

func TestFreeRegionNodeLayout(t *testing.T) {
	mem := newTestMemory(t)
	l := &freeList{mem: mem}
	l.AddFreeRegion(testHeapStart, 48)
	l.AddFreeRegion(testHeapStart+0x40, 32)

	assert.Equal(t, uint64(32), mem.LoadU64(testHeapStart+0x40+format.NodeSizeOffset))
	assert.Equal(t, uint64(testHeapStart), mem.LoadU64(testHeapStart+0x40+format.NodeNextOffset))
	assert.Zero(t, mem.LoadU64(testHeapStart+format.NodeNextOffset), "chain ends with 0")
}

func TestAddFreeRegionContract(t *testing.T) {
	l := &freeList{mem: newTestMemory(t)}
	assert.Panics(t, func() { l.AddFreeRegion(testHeapStart+4, 64) })
	assert.Panics(t, func() { l.AddFreeRegion(testHeapStart, 8) })
	assert.Zero(t, l.n)
}

func TestLinkedListInitTwicePanics(t *testing.T) {
	a := newLinkedList(t)
	assert.Panics(t, func() { a.Init(testHeapStart, testHeapSize) })
}
