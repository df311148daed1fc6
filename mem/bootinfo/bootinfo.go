// Package bootinfo describes what the bootloader hands to the kernel: the
// physical memory map and the offset at which all of physical memory is
// mapped into the virtual address space.
package bootinfo

import (
	"fmt"
	"iter"

	"github.com/joshuapare/kmemcore/mem/addr"
)

// RegionKind classifies a physical memory region.
type RegionKind uint8

const (
	// Usable memory is free for the kernel to allocate.
	Usable RegionKind = iota
	// Reserved memory belongs to firmware or devices.
	Reserved
	// FrameZero is the first frame, kept unused so null stays unmapped.
	FrameZero
	// KernelImage holds the loaded kernel code and data.
	KernelImage
	// KernelStack holds the boot stack.
	KernelStack
	// PageTable holds page tables built by the bootloader.
	PageTable
	// Bootloader holds other bootloader data.
	Bootloader
)

var kindNames = [...]string{
	Usable:      "Usable",
	Reserved:    "Reserved",
	FrameZero:   "FrameZero",
	KernelImage: "KernelImage",
	KernelStack: "KernelStack",
	PageTable:   "PageTable",
	Bootloader:  "Bootloader",
}

func (k RegionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("RegionKind(%d)", uint8(k))
}

// MemoryRegion is the half-open physical range [Start, End).
type MemoryRegion struct {
	Start addr.PhysAddr
	End   addr.PhysAddr
	Kind  RegionKind
}

// Size returns the length of the region in bytes.
func (r MemoryRegion) Size() uint64 { return uint64(r.End) - uint64(r.Start) }

// Contains reports whether p lies inside the region.
func (r MemoryRegion) Contains(p addr.PhysAddr) bool { return p >= r.Start && p < r.End }

// MemoryMap is the ordered list of regions reported at boot.
type MemoryMap []MemoryRegion

// Usable yields the regions tagged Usable, in map order.
func (mm MemoryMap) Usable() iter.Seq[MemoryRegion] {
	return func(yield func(MemoryRegion) bool) {
		for _, r := range mm {
			if r.Kind == Usable && !yield(r) {
				return
			}
		}
	}
}

// TotalUsable returns the number of usable bytes.
func (mm MemoryMap) TotalUsable() uint64 {
	var total uint64
	for r := range mm.Usable() {
		total += r.Size()
	}
	return total
}

// Lookup returns the region containing p.
func (mm MemoryMap) Lookup(p addr.PhysAddr) (MemoryRegion, bool) {
	for _, r := range mm {
		if r.Contains(p) {
			return r, true
		}
	}
	return MemoryRegion{}, false
}

// BootInfo is the information passed from the bootloader to the kernel.
type BootInfo struct {
	MemoryMap MemoryMap
	// PhysicalMemoryOffset is the virtual address at which physical
	// address 0 is mapped; all of RAM follows linearly.
	PhysicalMemoryOffset addr.VirtAddr
}
