package alloc

import (
	"fmt"

	"github.com/joshuapare/kmemcore/internal/format"
)

// Layout is the size and alignment of a requested block.
type Layout struct {
	Size  uint64
	Align uint64
}

// NewLayout validates align and returns the layout.
func NewLayout(size, align uint64) (Layout, error) {
	if !format.IsPowerOfTwo(align) {
		return Layout{}, fmt.Errorf("%w: alignment %d is not a power of two", ErrBadLayout, align)
	}
	if _, ok := format.CheckedAlignUp(size, align); !ok {
		return Layout{}, fmt.Errorf("%w: size %d overflows when aligned to %d", ErrBadLayout, size, align)
	}
	return Layout{Size: size, Align: align}, nil
}

// MustLayout is NewLayout for constant arguments.
func MustLayout(size, align uint64) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// LayoutFor returns the layout of n words, the unit the containers use.
func LayoutFor(words uint64) Layout {
	return MustLayout(words*8, 8)
}

// AlignTo returns l with its alignment raised to at least align.
func (l Layout) AlignTo(align uint64) Layout {
	return Layout{Size: l.Size, Align: max(l.Align, align)}
}

// PadToAlign returns l with its size rounded up to a multiple of its
// alignment. It panics if the rounded size overflows; NewLayout rules that
// out, AlignTo can reintroduce it.
func (l Layout) PadToAlign() Layout {
	size, ok := format.CheckedAlignUp(l.Size, l.Align)
	if !ok {
		panic(fmt.Sprintf("alloc: %s overflows when padded", l))
	}
	return Layout{Size: size, Align: l.Align}
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{size: %d, align: %d}", l.Size, l.Align)
}
