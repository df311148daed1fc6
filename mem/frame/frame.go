// Package frame hands out unused physical frames.
//
// The boot allocator walks the usable regions of the boot memory map in
// order and returns each 4 KiB frame exactly once. Frames are never given
// back: heap memory is recycled inside the heap strategies, not by returning
// physical frames here.
package frame

import (
	"sync"

	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/bootinfo"
)

// Allocator returns unused physical frames. The bool is false when no frame
// is left; callers decide whether that is fatal.
type Allocator interface {
	AllocateFrame() (addr.Frame, bool)
}

// BootInfoAllocator returns the usable frames of a boot memory map.
type BootInfoAllocator struct {
	memoryMap bootinfo.MemoryMap

	// next is the index of the next frame to hand out in the sequence of
	// all usable frames.
	next uint64

	// cursor remembers where frame next lives so each call is O(1)
	// amortized instead of rescanning the map.
	region int
	at     addr.PhysAddr

	total uint64
}

// NewBootInfo creates an allocator over mm.
//
// The caller must guarantee that every region tagged Usable is really unused
// and that only one allocator is ever created over the same map; two
// allocators would hand out the same frames.
func NewBootInfo(mm bootinfo.MemoryMap) *BootInfoAllocator {
	a := &BootInfoAllocator{memoryMap: mm, region: -1}
	for r := range mm.Usable() {
		a.total += regionFrames(r)
	}
	a.advanceRegion()
	return a
}

func regionFrames(r bootinfo.MemoryRegion) uint64 {
	start := format.AlignUp(uint64(r.Start), format.PageSize)
	end := format.AlignDown(uint64(r.End), format.PageSize)
	if end <= start {
		return 0
	}
	return (end - start) / format.PageSize
}

// advanceRegion moves the cursor to the first frame of the next usable
// region that has one.
func (a *BootInfoAllocator) advanceRegion() {
	for a.region++; a.region < len(a.memoryMap); a.region++ {
		r := a.memoryMap[a.region]
		if r.Kind == bootinfo.Usable && regionFrames(r) > 0 {
			a.at = r.Start.AlignUp(format.PageSize)
			return
		}
	}
}

// AllocateFrame returns the next usable frame.
func (a *BootInfoAllocator) AllocateFrame() (addr.Frame, bool) {
	if a.next >= a.total || a.region >= len(a.memoryMap) {
		if a.next == a.total {
			logger.Warn("frame allocator exhausted", "frames", a.total)
			a.next++ // warn once
		}
		return addr.Frame{}, false
	}

	f := addr.FrameContaining(a.at)
	a.next++
	a.at = a.at.Add(format.PageSize)
	if uint64(a.at)+format.PageSize > uint64(a.memoryMap[a.region].End) {
		a.advanceRegion()
	}
	return f, true
}

// Allocated returns how many frames have been handed out.
func (a *BootInfoAllocator) Allocated() uint64 { return min(a.next, a.total) }

// Remaining returns how many usable frames are left.
func (a *BootInfoAllocator) Remaining() uint64 { return a.total - a.Allocated() }

// Total returns the number of usable frames in the map.
func (a *BootInfoAllocator) Total() uint64 { return a.total }

// EmptyAllocator never has a frame to give.
type EmptyAllocator struct{}

// AllocateFrame always reports exhaustion.
func (EmptyAllocator) AllocateFrame() (addr.Frame, bool) { return addr.Frame{}, false }

// InterruptGuard runs a function with hardware interrupts disabled.
type InterruptGuard interface {
	WithoutInterrupts(fn func())
}

// Locked serializes access to an Allocator shared between normal code and
// interrupt handlers. Each call holds the lock with interrupts disabled, so
// a handler can never spin on a lock held by the code it interrupted.
type Locked struct {
	mu    sync.Mutex
	guard InterruptGuard
	inner Allocator
}

// NewLocked wraps inner. guard may be nil when no interrupts exist.
func NewLocked(inner Allocator, guard InterruptGuard) *Locked {
	return &Locked{inner: inner, guard: guard}
}

// AllocateFrame implements Allocator.
func (l *Locked) AllocateFrame() (f addr.Frame, ok bool) {
	run := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		f, ok = l.inner.AllocateFrame()
	}
	if l.guard == nil {
		run()
	} else {
		l.guard.WithoutInterrupts(run)
	}
	return f, ok
}
