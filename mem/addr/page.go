package addr

import (
	"fmt"
	"iter"

	"github.com/joshuapare/kmemcore/internal/format"
)

// Size4KiB is the size of every Page and Frame.
const Size4KiB = format.PageSize

// Page describes a 4 KiB virtual memory page by its start address.
type Page struct {
	start VirtAddr
}

// PageContaining returns the page that contains v. Unaligned addresses are
// rounded down.
func PageContaining(v VirtAddr) Page {
	return Page{start: v.AlignDown(Size4KiB)}
}

// PageFromStart returns the page starting at v, or ErrNotAligned.
func PageFromStart(v VirtAddr) (Page, error) {
	if !v.IsAligned(Size4KiB) {
		return Page{}, fmt.Errorf("%w: %s", ErrNotAligned, v)
	}
	return Page{start: v}, nil
}

// StartAddress returns the first address of the page.
func (p Page) StartAddress() VirtAddr { return p.start }

// Size returns the page size in bytes.
func (p Page) Size() uint64 { return Size4KiB }

// P4Index returns the level-4 index of the page.
func (p Page) P4Index() uint16 { return p.start.P4Index() }

// P3Index returns the level-3 index of the page.
func (p Page) P3Index() uint16 { return p.start.P3Index() }

// P2Index returns the level-2 index of the page.
func (p Page) P2Index() uint16 { return p.start.P2Index() }

// P1Index returns the level-1 index of the page.
func (p Page) P1Index() uint16 { return p.start.P1Index() }

// Next returns the following page. The start address is truncated into
// canonical form, so the page after 0x7fff_ffff_f000 is the first page of
// the upper half.
func (p Page) Next() Page {
	return Page{start: NewVirtAddrTruncate(uint64(p.start) + Size4KiB)}
}

func (p Page) String() string { return fmt.Sprintf("Page[4KiB](%#x)", uint64(p.start)) }

// PageRangeInclusive yields every page from start through end. It yields
// nothing when end precedes start.
func PageRangeInclusive(start, end Page) iter.Seq[Page] {
	return func(yield func(Page) bool) {
		if end.start < start.start {
			return
		}
		for p := start; ; p = p.Next() {
			if !yield(p) || p == end {
				return
			}
		}
	}
}

// PageCount returns the number of pages in [start, end].
func PageCount(start, end Page) uint64 {
	if end.start < start.start {
		return 0
	}
	return (uint64(end.start)-uint64(start.start))/Size4KiB + 1
}

// Frame describes a 4 KiB physical memory frame by its start address.
type Frame struct {
	start PhysAddr
}

// FrameContaining returns the frame that contains p.
func FrameContaining(p PhysAddr) Frame {
	return Frame{start: p.AlignDown(Size4KiB)}
}

// FrameFromStart returns the frame starting at p, or ErrNotAligned.
func FrameFromStart(p PhysAddr) (Frame, error) {
	if !p.IsAligned(Size4KiB) {
		return Frame{}, fmt.Errorf("%w: %s", ErrNotAligned, p)
	}
	return Frame{start: p}, nil
}

// StartAddress returns the first address of the frame.
func (f Frame) StartAddress() PhysAddr { return f.start }

// Size returns the frame size in bytes.
func (f Frame) Size() uint64 { return Size4KiB }

// Next returns the following frame.
func (f Frame) Next() Frame { return Frame{start: f.start.Add(Size4KiB)} }

func (f Frame) String() string { return fmt.Sprintf("Frame[4KiB](%#x)", uint64(f.start)) }
