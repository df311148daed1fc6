package alloc

import (
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// FixedSize serves small requests from per-class free lists of uniform,
// size-aligned blocks and everything else from a LinkedList over the same
// heap. A free block only stores the address of the next free block of its
// class at offset 0.
type FixedSize struct {
	table    *sizeClassTable
	heads    []addr.VirtAddr // per class, 0 when empty
	free     []int           // blocks on each class list
	fallback *LinkedList
	mem      Memory
	stats    Stats
}

var _ RegionAllocator = (*FixedSize)(nil)

// NewFixedSize returns an uninitialized allocator over mem with the given
// size classes.
func NewFixedSize(mem Memory, config SizeClassConfig) (*FixedSize, error) {
	table, err := newSizeClassTable(config)
	if err != nil {
		return nil, err
	}
	return &FixedSize{
		table:    table,
		heads:    make([]addr.VirtAddr, table.NumClasses()),
		free:     make([]int, table.NumClasses()),
		fallback: NewLinkedList(mem),
		mem:      mem,
	}, nil
}

// Init implements Strategy.
func (a *FixedSize) Init(start addr.VirtAddr, size uint64) { a.fallback.Init(start, size) }

// Alloc implements Strategy.
func (a *FixedSize) Alloc(l Layout) (addr.VirtAddr, error) {
	class := a.table.classFor(l)
	if class == len(a.heads) {
		at, size, err := a.fallback.allocate(l)
		if err != nil {
			return 0, a.fail(l, err)
		}
		a.stats.FallbackAllocs++
		a.stats.recordAlloc(size)
		return at, nil
	}

	block := a.table.sizes[class]
	if head := a.heads[class]; head != 0 {
		a.heads[class] = addr.VirtAddr(a.mem.LoadU64(head + format.BlockNextOffset))
		a.free[class]--
		a.stats.BucketHits++
		a.stats.recordAlloc(block)
		return head, nil
	}

	// The class is empty: carve a fresh block aligned to its own size.
	at, _, err := a.fallback.allocate(MustLayout(block, block))
	if err != nil {
		return 0, a.fail(l, err)
	}
	a.stats.BucketCarves++
	a.stats.recordAlloc(block)
	return at, nil
}

func (a *FixedSize) fail(l Layout, err error) error {
	a.stats.recordFailure()
	if logAlloc {
		logger.Debug("alloc: fixed size exhausted", "layout", l.String(), "classes", a.table.String())
	}
	return err
}

// Dealloc implements Strategy. The class is recomputed from the layout the
// block was allocated with.
func (a *FixedSize) Dealloc(ptr addr.VirtAddr, l Layout) {
	class := a.table.classFor(l)
	if class == len(a.heads) {
		a.stats.recordFree(a.fallback.release(ptr, l))
		return
	}
	a.mem.StoreU64(ptr+format.BlockNextOffset, uint64(a.heads[class]))
	a.heads[class] = ptr
	a.free[class]++
	a.stats.recordFree(a.table.sizes[class])
}

// BlockSizes returns the class ladder.
func (a *FixedSize) BlockSizes() []uint64 { return append([]uint64(nil), a.table.sizes...) }

// FreeBlocks returns the number of blocks on each class list.
func (a *FixedSize) FreeBlocks() []int { return append([]int(nil), a.free...) }

// Fallback returns the allocator behind the classes.
func (a *FixedSize) Fallback() *LinkedList { return a.fallback }

// Contains reports whether ptr lies inside the managed range.
func (a *FixedSize) Contains(ptr addr.VirtAddr) bool { return a.fallback.Contains(ptr) }

// Bounds returns the managed range.
func (a *FixedSize) Bounds() (start, end addr.VirtAddr) { return a.fallback.Bounds() }

// AddFreeRegion implements RegionAllocator by delegating to the fallback.
func (a *FixedSize) AddFreeRegion(start addr.VirtAddr, size uint64) {
	a.fallback.AddFreeRegion(start, size)
}

// FindFreeRegion implements RegionAllocator by delegating to the fallback.
func (a *FixedSize) FindFreeRegion(size, align uint64) (Region, addr.VirtAddr, bool) {
	return a.fallback.FindFreeRegion(size, align)
}

// AllocFromRegion implements RegionAllocator by delegating to the fallback.
func (a *FixedSize) AllocFromRegion(r Region, size, align uint64) (addr.VirtAddr, error) {
	return a.fallback.AllocFromRegion(r, size, align)
}

// SizeAlign implements RegionAllocator by delegating to the fallback.
func (a *FixedSize) SizeAlign(l Layout) (size, align uint64) { return a.fallback.SizeAlign(l) }

// Stats implements Strategy.
func (a *FixedSize) Stats() Stats {
	s := a.stats
	s.FreeRegions = a.fallback.n
	s.FreeBytes = a.fallback.freeBytes()
	for i, n := range a.free {
		s.FreeBytes += uint64(n) * a.table.sizes[i]
	}
	return s
}

// Kind implements Strategy.
func (a *FixedSize) Kind() Kind { return KindFixedSize }
