// Package testutil holds helpers shared by package tests: a host-backed
// stand-in for mapped heap memory and a one-call booted machine.
package testutil

import (
	"fmt"

	"github.com/joshuapare/kmemcore/internal/buf"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// SliceMemory backs the virtual range [Base, Base+len(Bytes)) with a Go
// slice. Accesses outside the range panic the way an unmapped access faults.
type SliceMemory struct {
	Base  addr.VirtAddr
	Bytes []byte

	Loads, Stores int
}

// NewSliceMemory returns zeroed memory of size bytes at base.
func NewSliceMemory(base addr.VirtAddr, size uint64) *SliceMemory {
	return &SliceMemory{Base: base, Bytes: make([]byte, size)}
}

func (m *SliceMemory) word(v addr.VirtAddr) []byte {
	off, ok := buf.SubU64(uint64(v), uint64(m.Base))
	if !ok {
		panic(fmt.Sprintf("testutil: access at %s below %s", v, m.Base))
	}
	b, ok := buf.Slice(m.Bytes, off, 8)
	if !ok {
		panic(fmt.Sprintf("testutil: access at %s beyond %d bytes", v, len(m.Bytes)))
	}
	return b
}

// LoadU64 reads the little-endian word at v.
func (m *SliceMemory) LoadU64(v addr.VirtAddr) uint64 {
	m.Loads++
	return buf.U64LE(m.word(v))
}

// StoreU64 writes w at v.
func (m *SliceMemory) StoreU64(v addr.VirtAddr, w uint64) {
	m.Stores++
	buf.PutU64LE(m.word(v), w)
}

// End returns the first address past the memory.
func (m *SliceMemory) End() addr.VirtAddr {
	return addr.VirtAddr(uint64(m.Base) + uint64(len(m.Bytes)))
}
