package container

import (
	"fmt"
	"iter"

	"github.com/joshuapare/kmemcore/heap"
	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/mem/addr"
)

const minVecCap = 4

// Vec is a growable sequence of uint64 stored contiguously on the heap.
// Capacity doubles when full, starting at four elements.
type Vec struct {
	h   *heap.Heap
	ptr addr.VirtAddr // 0 until the first Push
	len uint64
	cap uint64
}

// NewVec returns an empty vector; nothing is allocated yet.
func NewVec(h *heap.Heap) *Vec { return &Vec{h: h} }

// VecFrom returns a vector holding vs.
func VecFrom(h *heap.Heap, vs ...uint64) *Vec {
	v := NewVec(h)
	v.Reserve(uint64(len(vs)))
	for _, x := range vs {
		v.Push(x)
	}
	return v
}

func (v *Vec) slot(i uint64) addr.VirtAddr { return v.ptr + addr.VirtAddr(i*8) }

// Reserve grows the capacity to hold at least n elements.
func (v *Vec) Reserve(n uint64) {
	if n <= v.cap {
		return
	}
	newCap := max(v.cap*2, minVecCap, n)
	mem := v.h.Memory()
	ptr := v.h.MustAlloc(alloc.LayoutFor(newCap))
	for i := range v.len {
		mem.StoreU64(ptr+addr.VirtAddr(i*8), mem.LoadU64(v.slot(i)))
	}
	if v.cap > 0 {
		v.h.Dealloc(v.ptr, alloc.LayoutFor(v.cap))
	}
	v.ptr, v.cap = ptr, newCap
}

// Push appends x, growing the backing block when full.
func (v *Vec) Push(x uint64) {
	if v.len == v.cap {
		v.Reserve(v.len + 1)
	}
	v.h.Memory().StoreU64(v.slot(v.len), x)
	v.len++
}

// Get returns element i. It panics when i is out of range.
func (v *Vec) Get(i uint64) uint64 {
	if i >= v.len {
		panic(fmt.Sprintf("container: index %d out of range for Vec of length %d", i, v.len))
	}
	return v.h.Memory().LoadU64(v.slot(i))
}

// Len returns the number of elements.
func (v *Vec) Len() uint64 { return v.len }

// Cap returns the number of elements the current block holds.
func (v *Vec) Cap() uint64 { return v.cap }

// Addr returns the address of the backing block, 0 when none is allocated.
func (v *Vec) Addr() addr.VirtAddr { return v.ptr }

// All yields the elements in order.
func (v *Vec) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for i := range v.len {
			if !yield(v.Get(i)) {
				return
			}
		}
	}
}

// Sum returns the wrapping sum of all elements.
func (v *Vec) Sum() uint64 {
	var s uint64
	for x := range v.All() {
		s += x
	}
	return s
}

// Drop frees the backing block and empties the vector.
func (v *Vec) Drop() {
	if v.cap > 0 {
		v.h.Dealloc(v.ptr, alloc.LayoutFor(v.cap))
	}
	*v = Vec{h: v.h}
}
