package alloc

import (
	"os"

	"github.com/joshuapare/kmemcore/mem/addr"
)

// Runtime debug flag for allocation logging - controlled by KMEM_LOG_ALLOC env var.
var logAlloc = os.Getenv("KMEM_LOG_ALLOC") != ""

// Strategy is a heap allocation algorithm over one virtual range.
//
// Init must be called exactly once with a range that is mapped and unused;
// calling it again would alias live allocations, so it panics.
type Strategy interface {
	Init(start addr.VirtAddr, size uint64)
	Alloc(l Layout) (addr.VirtAddr, error)
	Dealloc(ptr addr.VirtAddr, l Layout)
	Stats() Stats
	Kind() Kind
}

// bounds is the range a strategy was initialized over.
type bounds struct {
	start, end addr.VirtAddr
}

func (b *bounds) init(name string, start addr.VirtAddr, size uint64) {
	if b.end != 0 {
		panic("alloc: " + name + " initialized twice")
	}
	if size == 0 {
		panic("alloc: " + name + " initialized over an empty heap")
	}
	b.start, b.end = start, addr.VirtAddr(uint64(start)+size)
}

// Contains reports whether ptr lies inside the managed range.
func (b *bounds) Contains(ptr addr.VirtAddr) bool { return ptr >= b.start && ptr < b.end }

// Bounds returns the managed range.
func (b *bounds) Bounds() (start, end addr.VirtAddr) { return b.start, b.end }
