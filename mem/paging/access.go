package paging

import (
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// TableAccess reads and writes page-table entries held in physical frames.
// Tables are always named by their physical frame; how the bytes are reached
// is up to the implementation.
type TableAccess interface {
	LoadEntry(table addr.Frame, index uint16) Entry
	StoreEntry(table addr.Frame, index uint16, e Entry)
	ZeroTable(table addr.Frame)
}

// Flusher invalidates cached translations for a page.
type Flusher interface {
	FlushPage(p addr.Page)
}

// VirtualMemory is the CPU's view of memory through the active tables.
type VirtualMemory interface {
	LoadU64(v addr.VirtAddr) uint64
	StoreU64(v addr.VirtAddr, w uint64)
	Write(v addr.VirtAddr, p []byte) error
}

// PhysicalMemory is direct access to RAM, used before paging is set up.
type PhysicalMemory interface {
	ReadPhysU64(p addr.PhysAddr) (uint64, error)
	WritePhysU64(p addr.PhysAddr, v uint64) error
	ZeroFrame(f addr.Frame) error
}

// OffsetAccess reaches every table through the linear window at Offset in
// which the bootloader mapped all of physical memory: the table in frame f
// is visible at virtual address Offset+f.
type OffsetAccess struct {
	Mem    VirtualMemory
	Offset addr.VirtAddr
}

// TableAddr returns the virtual address at which table is visible.
func (a OffsetAccess) TableAddr(table addr.Frame) addr.VirtAddr {
	return a.Offset.Add(uint64(table.StartAddress()))
}

func (a OffsetAccess) entryAddr(table addr.Frame, index uint16) addr.VirtAddr {
	return a.TableAddr(table).Add(uint64(index) * format.EntrySize)
}

// LoadEntry implements TableAccess.
func (a OffsetAccess) LoadEntry(table addr.Frame, index uint16) Entry {
	return Entry(a.Mem.LoadU64(a.entryAddr(table, index)))
}

// StoreEntry implements TableAccess.
func (a OffsetAccess) StoreEntry(table addr.Frame, index uint16, e Entry) {
	a.Mem.StoreU64(a.entryAddr(table, index), uint64(e))
}

// ZeroTable implements TableAccess.
func (a OffsetAccess) ZeroTable(table addr.Frame) {
	var zero [format.PageSize]byte
	if err := a.Mem.Write(a.TableAddr(table), zero[:]); err != nil {
		panic(err)
	}
}

// PhysAccess reads tables straight from RAM. Only the bootloader uses it,
// while it builds the tables that will later provide the offset window.
type PhysAccess struct {
	Mem PhysicalMemory
}

// LoadEntry implements TableAccess.
func (a PhysAccess) LoadEntry(table addr.Frame, index uint16) Entry {
	v, err := a.Mem.ReadPhysU64(table.StartAddress().Add(uint64(index) * format.EntrySize))
	if err != nil {
		panic(err)
	}
	return Entry(v)
}

// StoreEntry implements TableAccess.
func (a PhysAccess) StoreEntry(table addr.Frame, index uint16, e Entry) {
	if err := a.Mem.WritePhysU64(table.StartAddress().Add(uint64(index)*format.EntrySize), uint64(e)); err != nil {
		panic(err)
	}
}

// ZeroTable implements TableAccess.
func (a PhysAccess) ZeroTable(table addr.Frame) {
	if err := a.Mem.ZeroFrame(table); err != nil {
		panic(err)
	}
}
