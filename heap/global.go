package heap

import (
	"fmt"
	"os"

	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/frame"
)

// Runtime debug flag for allocation logging - controlled by KMEM_LOG_ALLOC env var.
var logAlloc = os.Getenv("KMEM_LOG_ALLOC") != ""

// Heap is the global allocator: one initialized strategy behind a lock,
// plus the memory its blocks live in.
type Heap struct {
	locked *alloc.Locked[alloc.Strategy]
	mem    alloc.Memory
	start  addr.VirtAddr
	size   uint64
}

// New wraps s, which must already be initialized over [start, start+size).
// guard disables interrupts around every call and may be nil.
func New(s alloc.Strategy, mem alloc.Memory, guard frame.InterruptGuard, start addr.VirtAddr, size uint64) *Heap {
	return &Heap{
		locked: alloc.NewLocked(s, guard),
		mem:    mem,
		start:  start,
		size:   size,
	}
}

// Alloc returns a block for l or ErrNoSpace wrapped with the layout.
func (h *Heap) Alloc(l alloc.Layout) (addr.VirtAddr, error) {
	p, err := h.locked.Alloc(l)
	if err != nil {
		if logAlloc {
			logger.Debug("heap: alloc failed", "layout", l.String(), "err", err)
		}
		return 0, fmt.Errorf("heap: alloc %s: %w", l, err)
	}
	if logAlloc {
		logger.Debug("heap: alloc", "layout", l.String(), "ptr", p.String())
	}
	return p, nil
}

// MustAlloc is Alloc for callers with no way to recover, like the built-in
// containers. Exhaustion halts with the failing layout.
func (h *Heap) MustAlloc(l alloc.Layout) addr.VirtAddr {
	p, err := h.Alloc(l)
	if err != nil {
		panic(fmt.Sprintf("allocation error: %s", l))
	}
	return p
}

// Dealloc returns ptr, allocated with l, to the strategy. Releasing a
// pointer outside the heap is a contract violation and panics.
func (h *Heap) Dealloc(ptr addr.VirtAddr, l alloc.Layout) {
	if !h.Contains(ptr) {
		panic(fmt.Sprintf("heap: dealloc of %s outside the heap", ptr))
	}
	if logAlloc {
		logger.Debug("heap: dealloc", "layout", l.String(), "ptr", ptr.String())
	}
	h.locked.Dealloc(ptr, l)
}

// Contains reports whether ptr lies inside the heap range.
func (h *Heap) Contains(ptr addr.VirtAddr) bool {
	return ptr >= h.start && uint64(ptr)-uint64(h.start) < h.size
}

// Memory returns the memory blocks are read and written through.
func (h *Heap) Memory() alloc.Memory { return h.mem }

// Kind returns the strategy in use.
func (h *Heap) Kind() alloc.Kind { return h.locked.Kind() }

// Bounds returns the heap range.
func (h *Heap) Bounds() (start addr.VirtAddr, size uint64) { return h.start, h.size }

// Stats is a snapshot of the heap and its strategy.
type Stats struct {
	Kind  alloc.Kind
	Start addr.VirtAddr
	Size  uint64
	alloc.Stats
}

// Stats returns a snapshot of the strategy's counters.
func (h *Heap) Stats() Stats {
	return Stats{Kind: h.Kind(), Start: h.start, Size: h.size, Stats: h.locked.Stats()}
}

// Inspect runs fn with exclusive access to the strategy.
func (h *Heap) Inspect(fn func(alloc.Strategy)) { h.locked.With(fn) }

// FreeRegions returns the free chain of strategies that keep one, in chain
// order. Bump has none and yields nil.
func (h *Heap) FreeRegions() []alloc.Region {
	var out []alloc.Region
	h.Inspect(func(s alloc.Strategy) {
		var ll *alloc.LinkedList
		switch s := s.(type) {
		case *alloc.LinkedList:
			ll = s
		case *alloc.FixedSize:
			ll = s.Fallback()
		default:
			return
		}
		for r := range ll.Regions() {
			out = append(out, r)
		}
	})
	return out
}
