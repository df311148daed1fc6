package alloc

import (
	"github.com/joshuapare/kmemcore/internal/buf"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Bump is a pointer-increment allocator.
//
// Key characteristics:
//   - O(1) allocation: align the cursor, advance it
//   - No per-allocation metadata; Memory is never touched
//   - Dealloc only counts; the cursor goes back to the heap start once every
//     outstanding allocation has been released
type Bump struct {
	bounds

	// next is the cursor: the lowest address not yet handed out.
	next addr.VirtAddr

	// allocations is the number of outstanding allocations.
	allocations int

	stats Stats
}

// NewBump returns an uninitialized bump allocator.
func NewBump() *Bump { return &Bump{} }

// Init implements Strategy.
func (b *Bump) Init(start addr.VirtAddr, size uint64) {
	b.bounds.init("bump", start, size)
	b.next = start
}

// Alloc implements Strategy.
func (b *Bump) Alloc(l Layout) (addr.VirtAddr, error) {
	start, ok := format.CheckedAlignUp(uint64(b.next), l.Align)
	var end uint64
	if ok {
		end, ok = buf.AddU64(start, l.Size)
	}
	if !ok || end > uint64(b.end) {
		b.stats.recordFailure()
		if logAlloc {
			logger.Debug("alloc: bump exhausted", "layout", l.String(), "cursor", uint64(b.next), "end", uint64(b.end))
		}
		return 0, ErrNoSpace
	}
	b.stats.recordAlloc(l.Size)
	b.next = addr.VirtAddr(end)
	b.allocations++
	return addr.VirtAddr(start), nil
}

// Dealloc implements Strategy. Releasing more than was allocated is a
// contract violation and panics.
func (b *Bump) Dealloc(ptr addr.VirtAddr, l Layout) {
	if b.allocations == 0 {
		panic("alloc: bump dealloc without an outstanding allocation")
	}
	b.stats.recordFree(l.Size)
	b.allocations--
	if b.allocations == 0 {
		b.next = b.start
	}
}

// Cursor returns the next address the allocator would consider.
func (b *Bump) Cursor() addr.VirtAddr { return b.next }

// Allocations returns the number of outstanding allocations.
func (b *Bump) Allocations() int { return b.allocations }

// Stats implements Strategy.
func (b *Bump) Stats() Stats {
	s := b.stats
	s.Cursor = uint64(b.next)
	s.FreeBytes = uint64(b.end) - uint64(b.next)
	return s
}

// Kind implements Strategy.
func (b *Bump) Kind() Kind { return KindBump }
