package alloc

import (
	"iter"

	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// LinkedList is a first-fit allocator over a chain of Free Region Nodes
// stored in the heap itself. Freed blocks are pushed to the front of the
// chain and never merged with their neighbours, so the chain fragments over
// time.
type LinkedList struct {
	bounds
	freeList
	stats Stats
}

var _ RegionAllocator = (*LinkedList)(nil)

// NewLinkedList returns an uninitialized allocator over mem.
func NewLinkedList(mem Memory) *LinkedList {
	return &LinkedList{freeList: freeList{mem: mem}}
}

// Init implements Strategy. The whole range becomes one free region, so
// start must be node aligned and size must hold a node header.
func (a *LinkedList) Init(start addr.VirtAddr, size uint64) {
	a.bounds.init("linked list", start, size)
	a.AddFreeRegion(start, size)
}

// Alloc implements Strategy.
func (a *LinkedList) Alloc(l Layout) (addr.VirtAddr, error) {
	at, size, err := a.allocate(l)
	if err != nil {
		a.stats.recordFailure()
		if logAlloc {
			logger.Debug("alloc: linked list exhausted", "layout", l.String(), "regions", a.n)
		}
		return 0, err
	}
	a.stats.recordAlloc(size)
	return at, nil
}

// Dealloc implements Strategy.
func (a *LinkedList) Dealloc(ptr addr.VirtAddr, l Layout) {
	a.stats.recordFree(a.release(ptr, l))
}

// Regions yields the free chain in chain order.
func (a *LinkedList) Regions() iter.Seq[Region] { return a.regions() }

// Stats implements Strategy.
func (a *LinkedList) Stats() Stats {
	s := a.stats
	s.FreeRegions = a.n
	s.FreeBytes = a.freeBytes()
	return s
}

// Kind implements Strategy.
func (a *LinkedList) Kind() Kind { return KindLinkedList }
