package addr

import (
	"fmt"

	"github.com/joshuapare/kmemcore/internal/format"
)

// VirtAddr is a canonical 64-bit virtual address.
type VirtAddr uint64

// IsCanonical reports whether v's top 16 bits replicate bit 47.
func IsCanonical(v uint64) bool {
	return sext47(v) == v
}

func sext47(v uint64) uint64 {
	return uint64(int64(v<<(64-format.VirtAddrBits)) >> (64 - format.VirtAddrBits))
}

// TryNewVirtAddr returns v as a VirtAddr, or ErrNonCanonical.
func TryNewVirtAddr(v uint64) (VirtAddr, error) {
	if !IsCanonical(v) {
		return 0, fmt.Errorf("%w: %#x", ErrNonCanonical, v)
	}
	return VirtAddr(v), nil
}

// NewVirtAddr returns v as a VirtAddr. It panics when v is not canonical.
func NewVirtAddr(v uint64) VirtAddr {
	a, err := TryNewVirtAddr(v)
	if err != nil {
		panic(err)
	}
	return a
}

// NewVirtAddrTruncate sign-extends bit 47 over the top 16 bits of v.
func NewVirtAddrTruncate(v uint64) VirtAddr {
	return VirtAddr(sext47(v))
}

// FromIndices rebuilds the canonical address selected by the four table
// indices and the page offset. Indices are masked to 9 bits, the offset to 12.
func FromIndices(p4, p3, p2, p1, offset uint16) VirtAddr {
	v := uint64(p4&format.TableIndexMask)<<format.LevelShifts[0] |
		uint64(p3&format.TableIndexMask)<<format.LevelShifts[1] |
		uint64(p2&format.TableIndexMask)<<format.LevelShifts[2] |
		uint64(p1&format.TableIndexMask)<<format.LevelShifts[3] |
		uint64(offset&format.PageOffsetMask)
	return NewVirtAddrTruncate(v)
}

// Uint64 returns the raw address.
func (v VirtAddr) Uint64() uint64 { return uint64(v) }

// IsNull reports whether v is the zero address.
func (v VirtAddr) IsNull() bool { return v == 0 }

// Add returns v+n. It panics if the result leaves the canonical range.
func (v VirtAddr) Add(n uint64) VirtAddr { return NewVirtAddr(uint64(v) + n) }

// Sub returns the distance v-o in bytes.
func (v VirtAddr) Sub(o VirtAddr) uint64 { return uint64(v) - uint64(o) }

// TableIndex returns the 9-bit index used at level (0 = P4 ... 3 = P1).
func (v VirtAddr) TableIndex(level int) uint16 {
	return uint16(uint64(v)>>format.LevelShifts[level]) & format.TableIndexMask
}

// P4Index returns the index into the level-4 table.
func (v VirtAddr) P4Index() uint16 { return v.TableIndex(0) }

// P3Index returns the index into the level-3 table.
func (v VirtAddr) P3Index() uint16 { return v.TableIndex(1) }

// P2Index returns the index into the level-2 table.
func (v VirtAddr) P2Index() uint16 { return v.TableIndex(2) }

// P1Index returns the index into the level-1 table.
func (v VirtAddr) P1Index() uint16 { return v.TableIndex(3) }

// PageOffset returns the low 12 bits of v.
func (v VirtAddr) PageOffset() uint16 { return uint16(uint64(v) & format.PageOffsetMask) }

// AlignUp rounds v up to align. The result is truncated back into canonical form.
func (v VirtAddr) AlignUp(align uint64) VirtAddr {
	return NewVirtAddrTruncate(format.AlignUp(uint64(v), align))
}

// AlignDown rounds v down to align.
func (v VirtAddr) AlignDown(align uint64) VirtAddr {
	return NewVirtAddrTruncate(format.AlignDown(uint64(v), align))
}

// IsAligned reports whether v is a multiple of align.
func (v VirtAddr) IsAligned(align uint64) bool { return format.IsAligned(uint64(v), align) }

func (v VirtAddr) String() string { return fmt.Sprintf("VirtAddr(%#x)", uint64(v)) }
