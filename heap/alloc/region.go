package alloc

import (
	"fmt"
	"iter"

	"github.com/joshuapare/kmemcore/internal/buf"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Region is a free span [Addr, Addr+Size) described by a node at Addr.
type Region struct {
	Addr addr.VirtAddr
	Size uint64
}

// End returns the first address past the region.
func (r Region) End() addr.VirtAddr { return addr.VirtAddr(uint64(r.Addr) + r.Size) }

func (r Region) String() string {
	return fmt.Sprintf("Region[%#x..%#x)", uint64(r.Addr), uint64(r.End()))
}

// RegionAllocator is the free-region capability shared by the strategies
// that keep a chain of Free Region Nodes.
type RegionAllocator interface {
	// AddFreeRegion writes a node at start and puts it at the front of the
	// chain. start must be node aligned and size must hold a node header.
	AddFreeRegion(start addr.VirtAddr, size uint64)

	// FindFreeRegion returns the first region in chain order that fits, and
	// the aligned allocation address inside it. The region is unlinked; the
	// caller returns any excess through AddFreeRegion.
	FindFreeRegion(size, align uint64) (Region, addr.VirtAddr, bool)

	// AllocFromRegion returns the allocation address for size and align
	// inside r, or ErrUnfit.
	AllocFromRegion(r Region, size, align uint64) (addr.VirtAddr, error)

	// SizeAlign pads l so that the block can later hold a node header.
	SizeAlign(l Layout) (size, align uint64)
}

// freeList is the chain of Free Region Nodes. The sentinel head lives here,
// outside the heap; every other node lives in the free bytes it describes.
type freeList struct {
	mem  Memory
	head addr.VirtAddr // 0 when the chain is empty
	n    int
}

// AddFreeRegion implements RegionAllocator.
func (l *freeList) AddFreeRegion(start addr.VirtAddr, size uint64) {
	if !format.IsAligned(uint64(start), format.NodeAlign) {
		panic(fmt.Sprintf("alloc: free region at %#x is not %d-byte aligned", uint64(start), format.NodeAlign))
	}
	if size < format.NodeHeaderSize {
		panic(fmt.Sprintf("alloc: free region of %d bytes cannot hold a node header", size))
	}
	node{l.mem, start}.write(size, l.head)
	l.head = start
	l.n++
}

// FindFreeRegion implements RegionAllocator.
func (l *freeList) FindFreeRegion(size, align uint64) (Region, addr.VirtAddr, bool) {
	var prev addr.VirtAddr
	for cur := l.head; cur != 0; {
		n := node{l.mem, cur}
		r := Region{Addr: cur, Size: n.size()}
		next := n.next()
		if at, err := l.AllocFromRegion(r, size, align); err == nil {
			if prev == 0 {
				l.head = next
			} else {
				node{l.mem, prev}.setNext(next)
			}
			l.n--
			return r, at, true
		}
		prev, cur = cur, next
	}
	return Region{}, 0, false
}

// AllocFromRegion implements RegionAllocator.
func (l *freeList) AllocFromRegion(r Region, size, align uint64) (addr.VirtAddr, error) {
	start, ok := format.CheckedAlignUp(uint64(r.Addr), align)
	if !ok {
		return 0, ErrUnfit
	}
	end, ok := buf.AddU64(start, size)
	if !ok || end > uint64(r.End()) {
		return 0, ErrUnfit
	}
	// A tail too small for a node header could never be tracked again.
	if excess := uint64(r.End()) - end; excess > 0 && excess < format.NodeHeaderSize {
		return 0, ErrUnfit
	}
	return addr.VirtAddr(start), nil
}

// SizeAlign implements RegionAllocator. A size that overflows when padded
// saturates to the largest uint64, which no region can hold.
func (l *freeList) SizeAlign(lay Layout) (size, align uint64) {
	align = max(lay.Align, format.NodeAlign)
	size, ok := format.CheckedAlignUp(lay.Size, align)
	if !ok {
		return ^uint64(0), align
	}
	return max(size, format.NodeHeaderSize), align
}

// allocate runs the first-fit path shared by LinkedList and the FixedSize
// fallback and returns the block size, the same quantity release reports.
func (l *freeList) allocate(lay Layout) (addr.VirtAddr, uint64, error) {
	size, align := l.SizeAlign(lay)
	if _, ok := format.CheckedAlignUp(lay.Size, align); !ok {
		return 0, 0, ErrNoSpace
	}
	r, at, ok := l.FindFreeRegion(size, align)
	if !ok {
		return 0, 0, ErrNoSpace
	}
	end := uint64(at) + size
	if excess := uint64(r.End()) - end; excess > 0 {
		l.AddFreeRegion(addr.VirtAddr(end), excess)
	}
	return at, size, nil
}

func (l *freeList) release(ptr addr.VirtAddr, lay Layout) uint64 {
	size, _ := l.SizeAlign(lay)
	l.AddFreeRegion(ptr, size)
	return size
}

// regions yields the chain in order.
func (l *freeList) regions() iter.Seq[Region] {
	return func(yield func(Region) bool) {
		for cur := l.head; cur != 0; {
			n := node{l.mem, cur}
			if !yield(Region{Addr: cur, Size: n.size()}) {
				return
			}
			cur = n.next()
		}
	}
}

func (l *freeList) freeBytes() uint64 {
	var total uint64
	for r := range l.regions() {
		total += r.Size
	}
	return total
}
