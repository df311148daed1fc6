package kernel

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kmemcore/heap"
	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/boot"
)

// ErrInvalidConfig indicates a Config that Validate rejects.
var ErrInvalidConfig = errors.New("kernel: invalid config")

// Config controls how the simulated kernel boots.
type Config struct {
	// RAMSize is the physical memory of the machine in bytes.
	// Default: 32 MiB
	RAMSize uint64

	// PhysicalMemoryOffset is where the bootloader maps all of RAM.
	// Default: 0x0000_1000_0000_0000
	PhysicalMemoryOffset uint64

	// HugeOffsetWindow maps the physical-memory window with 2 MiB pages.
	// The plain translator refuses huge pages, so address translation then
	// goes through the huge-aware mapper instead.
	HugeOffsetWindow bool

	// HeapStart and HeapSize place the kernel heap.
	// Default: 0x_4444_4444_0000, 100 KiB
	HeapStart uint64
	HeapSize  uint64

	// Strategy selects the heap algorithm.
	// Default: linked-list
	Strategy alloc.Kind

	// SizeClasses is the ladder used by the fixed-size strategy.
	// Default: alloc.ConfigDefault (8..2048)
	SizeClasses alloc.SizeClassConfig
}

// DefaultConfig returns the layout the kernel is built with.
func DefaultConfig() Config {
	return Config{
		RAMSize:              boot.DefaultRAMSize,
		PhysicalMemoryOffset: boot.DefaultPhysicalMemoryOffset,
		HeapStart:            heap.HeapStart,
		HeapSize:             heap.HeapSize,
		Strategy:             alloc.KindLinkedList,
		SizeClasses:          alloc.ConfigDefault,
	}
}

// Validate checks what can be checked without booting. The bootloader
// re-checks the memory layout when it builds the tables.
func (c Config) Validate() error {
	if _, err := addr.TryNewVirtAddr(c.HeapStart); err != nil {
		return fmt.Errorf("%w: heap start %#x: %v", ErrInvalidConfig, c.HeapStart, err)
	}
	if !format.IsAligned(c.HeapStart, format.PageSize) {
		return fmt.Errorf("%w: heap start %#x is not page aligned", ErrInvalidConfig, c.HeapStart)
	}
	if c.HeapSize < format.NodeHeaderSize {
		return fmt.Errorf("%w: heap size %d cannot hold a free region", ErrInvalidConfig, c.HeapSize)
	}
	if last := c.HeapStart + c.HeapSize - 1; last < c.HeapStart || !addr.IsCanonical(last) {
		return fmt.Errorf("%w: heap [%#x, +%#x) leaves the canonical half", ErrInvalidConfig, c.HeapStart, c.HeapSize)
	}
	if _, err := addr.TryNewVirtAddr(c.PhysicalMemoryOffset); err != nil {
		return fmt.Errorf("%w: physical memory offset %#x: %v", ErrInvalidConfig, c.PhysicalMemoryOffset, err)
	}
	if heapEnd, winEnd := c.HeapStart+c.HeapSize, c.PhysicalMemoryOffset+c.RAMSize; c.HeapStart < winEnd && c.PhysicalMemoryOffset < heapEnd {
		return fmt.Errorf("%w: heap overlaps the physical memory window", ErrInvalidConfig)
	}
	if c.HeapSize/format.PageSize >= c.RAMSize/format.PageSize {
		return fmt.Errorf("%w: heap of %d bytes does not fit %d bytes of RAM", ErrInvalidConfig, c.HeapSize, c.RAMSize)
	}
	switch c.Strategy {
	case alloc.KindBump, alloc.KindLinkedList:
	case alloc.KindFixedSize:
		if _, err := alloc.NewFixedSize(nil, c.SizeClasses); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: strategy %s", ErrInvalidConfig, c.Strategy)
	}
	return nil
}

func (c Config) bootOptions() boot.Options {
	opts := boot.DefaultOptions()
	opts.RAMSize = c.RAMSize
	opts.PhysicalMemoryOffset = addr.NewVirtAddr(c.PhysicalMemoryOffset)
	opts.HugeOffsetWindow = c.HugeOffsetWindow
	return opts
}
