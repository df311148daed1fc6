// Package heap maps the kernel heap and exposes the global allocator.
//
// Init backs every page of the heap range with a fresh frame and then hands
// the range to a strategy. Heap wraps that strategy behind a lock and is the
// single entry point for dynamic allocation.
package heap

import (
	"fmt"

	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/frame"
	"github.com/joshuapare/kmemcore/mem/paging"
)

const (
	// HeapStart is the first address of the kernel heap.
	HeapStart = 0x_4444_4444_0000

	// HeapSize is the size of the kernel heap in bytes.
	HeapSize = 100 * 1024
)

// Mapper installs page mappings. *paging.MappedPageTable implements it.
type Mapper interface {
	MapTo(page addr.Page, f addr.Frame, flags paging.Flags, frames frame.Allocator) error
}

// Init maps every page of [start, start+size) to a newly allocated frame,
// present and writable, then initializes s over the range.
//
// It must be called once per heap: the strategy panics on a second Init.
// A mapping failure is returned as is and leaves s uninitialized; the pages
// mapped before the failure stay mapped.
func Init(mapper Mapper, frames frame.Allocator, start addr.VirtAddr, size uint64, s alloc.Strategy) error {
	if size == 0 {
		return fmt.Errorf("heap: empty heap at %s", start)
	}
	last, err := addr.TryNewVirtAddr(uint64(start) + size - 1)
	if err != nil {
		return fmt.Errorf("heap: range %s+%#x: %w", start, size, err)
	}

	first := addr.PageContaining(start)
	end := addr.PageContaining(last)
	for page := range addr.PageRangeInclusive(first, end) {
		f, ok := frames.AllocateFrame()
		if !ok {
			return fmt.Errorf("heap: map %s: %w", page, paging.ErrFrameAllocationFailed)
		}
		if err := mapper.MapTo(page, f, paging.Present|paging.Writable, frames); err != nil {
			return fmt.Errorf("heap: map %s: %w", page, err)
		}
	}

	s.Init(start, size)
	logger.Debug("heap: initialized",
		"start", start.String(),
		"size", size,
		"pages", addr.PageCount(first, end),
		"strategy", s.Kind().String())
	return nil
}
