package container

import (
	"github.com/joshuapare/kmemcore/heap"
	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Shared block layout: the strong count followed by the value.
const (
	sharedCountOffset = 0
	sharedValueOffset = 8
)

var sharedLayout = alloc.LayoutFor(2)

// Shared is one handle on a reference-counted uint64. The count lives on
// the heap next to the value; the block is freed when the last handle is
// dropped.
type Shared struct {
	h   *heap.Heap
	ptr addr.VirtAddr
}

// NewShared allocates a shared value with a count of one.
func NewShared(h *heap.Heap, v uint64) *Shared {
	p := h.MustAlloc(sharedLayout)
	mem := h.Memory()
	mem.StoreU64(p+sharedCountOffset, 1)
	mem.StoreU64(p+sharedValueOffset, v)
	return &Shared{h: h, ptr: p}
}

func (s *Shared) live() addr.VirtAddr {
	if s.ptr == 0 {
		panic("container: use of dropped Shared handle")
	}
	return s.ptr
}

// Clone returns a new handle on the same value.
func (s *Shared) Clone() *Shared {
	p := s.live()
	mem := s.h.Memory()
	mem.StoreU64(p+sharedCountOffset, mem.LoadU64(p+sharedCountOffset)+1)
	return &Shared{h: s.h, ptr: p}
}

// StrongCount returns the number of live handles.
func (s *Shared) StrongCount() uint64 {
	return s.h.Memory().LoadU64(s.live() + sharedCountOffset)
}

// Get returns the shared value.
func (s *Shared) Get() uint64 { return s.h.Memory().LoadU64(s.live() + sharedValueOffset) }

// Drop releases this handle and frees the value with the last one.
func (s *Shared) Drop() {
	p := s.live()
	mem := s.h.Memory()
	n := mem.LoadU64(p+sharedCountOffset) - 1
	if n == 0 {
		s.h.Dealloc(p, sharedLayout)
	} else {
		mem.StoreU64(p+sharedCountOffset, n)
	}
	s.ptr = 0
}
