// Package container holds the heap-backed values kernel code builds on the
// global allocator: a single boxed word, a growable word vector and a
// reference-counted box.
//
// Containers allocate with Heap.MustAlloc; running out of heap halts with
// an allocation error, as it does for any built-in allocation.
package container

import (
	"github.com/joshuapare/kmemcore/heap"
	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/mem/addr"
)

var wordLayout = alloc.LayoutFor(1)

// Box is one uint64 on the heap.
type Box struct {
	h   *heap.Heap
	ptr addr.VirtAddr
}

// NewBox allocates a word and stores v in it.
func NewBox(h *heap.Heap, v uint64) *Box {
	b := &Box{h: h, ptr: h.MustAlloc(wordLayout)}
	b.Set(v)
	return b
}

// TryNewBox is NewBox that reports exhaustion instead of halting.
func TryNewBox(h *heap.Heap, v uint64) (*Box, error) {
	p, err := h.Alloc(wordLayout)
	if err != nil {
		return nil, err
	}
	b := &Box{h: h, ptr: p}
	b.Set(v)
	return b, nil
}

// Get returns the boxed value.
func (b *Box) Get() uint64 { return b.h.Memory().LoadU64(b.live()) }

// Set replaces the boxed value.
func (b *Box) Set(v uint64) { b.h.Memory().StoreU64(b.live(), v) }

// Addr returns the heap address of the value.
func (b *Box) Addr() addr.VirtAddr { return b.ptr }

// Drop frees the box. Using it afterwards panics.
func (b *Box) Drop() {
	b.h.Dealloc(b.live(), wordLayout)
	b.ptr = 0
}

func (b *Box) live() addr.VirtAddr {
	if b.ptr == 0 {
		panic("container: use of dropped Box")
	}
	return b.ptr
}
