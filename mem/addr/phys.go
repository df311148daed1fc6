package addr

import (
	"fmt"

	"github.com/joshuapare/kmemcore/internal/format"
)

// PhysAddr is a physical memory address of at most 52 bits.
type PhysAddr uint64

// TryNewPhysAddr returns p as a PhysAddr, or ErrPhysTooWide.
func TryNewPhysAddr(p uint64) (PhysAddr, error) {
	if p>>format.PhysAddrBits != 0 {
		return 0, fmt.Errorf("%w: %#x", ErrPhysTooWide, p)
	}
	return PhysAddr(p), nil
}

// NewPhysAddr returns p as a PhysAddr. It panics when p is wider than 52 bits.
func NewPhysAddr(p uint64) PhysAddr {
	a, err := TryNewPhysAddr(p)
	if err != nil {
		panic(err)
	}
	return a
}

// Uint64 returns the raw address.
func (p PhysAddr) Uint64() uint64 { return uint64(p) }

// Add returns p+n.
func (p PhysAddr) Add(n uint64) PhysAddr { return NewPhysAddr(uint64(p) + n) }

// AlignUp rounds p up to align.
func (p PhysAddr) AlignUp(align uint64) PhysAddr { return PhysAddr(format.AlignUp(uint64(p), align)) }

// AlignDown rounds p down to align.
func (p PhysAddr) AlignDown(align uint64) PhysAddr {
	return PhysAddr(format.AlignDown(uint64(p), align))
}

// IsAligned reports whether p is a multiple of align.
func (p PhysAddr) IsAligned(align uint64) bool { return format.IsAligned(uint64(p), align) }

func (p PhysAddr) String() string { return fmt.Sprintf("PhysAddr(%#x)", uint64(p)) }
