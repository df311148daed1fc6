// Package format holds the binary layout shared by the paging structures and
// the heap: page geometry, page-table entry bit positions, the in-place free
// region header and the alignment arithmetic that ties them together.
package format

const (
	// PageShift is log2 of the base page size.
	PageShift = 12

	// PageSize is the size of a 4 KiB page or frame in bytes.
	PageSize = 1 << PageShift

	// PageOffsetMask selects the intra-page offset of an address.
	PageOffsetMask = PageSize - 1

	// HugePageSize2MiB and HugePageSize1GiB are the sizes mapped by a huge
	// entry at the P2 and P3 levels respectively.
	HugePageSize2MiB = 1 << 21
	HugePageSize1GiB = 1 << 30

	// PageLevels is the number of table levels walked on x86-64 (P4..P1).
	PageLevels = 4

	// EntriesPerTable is the number of 8-byte entries in every page table.
	EntriesPerTable = 512

	// EntrySize is the size of one page-table entry in bytes.
	EntrySize = 8

	// TableIndexBits is the number of virtual address bits consumed per level.
	TableIndexBits = 9

	// TableIndexMask selects one 9-bit table index.
	TableIndexMask = EntriesPerTable - 1

	// VirtAddrBits is the number of significant virtual address bits. Bits
	// 48..63 must be copies of bit 47.
	VirtAddrBits = 48

	// PhysAddrBits is the maximum physical address width.
	PhysAddrBits = 52

	// EntryAddrMask extracts the frame address (bits 12..51) from an entry.
	EntryAddrMask = 0x000f_ffff_ffff_f000
)

// LevelShifts is the shift of each table index inside a virtual address,
// ordered from the top-level table (P4) down to P1.
var LevelShifts = [PageLevels]uint{39, 30, 21, 12}

// Page-table entry flag bits.
const (
	EntryPresent      = 1 << 0
	EntryWritable     = 1 << 1
	EntryUser         = 1 << 2
	EntryWriteThrough = 1 << 3
	EntryNoCache      = 1 << 4
	EntryAccessed     = 1 << 5
	EntryDirty        = 1 << 6
	EntryHuge         = 1 << 7
	EntryGlobal       = 1 << 8
	EntryNoExecute    = 1 << 63
)

// Free region node header, written at the start of every free heap span.
//
//	0x00  size  uint64  bytes covered by the region, header included
//	0x08  next  uint64  address of the next node, 0 terminates the chain
const (
	NodeSizeOffset = 0
	NodeNextOffset = 8
	NodeHeaderSize = 16
	NodeAlign      = 8
)

// BlockNextOffset is the offset of the link word in a free fixed-size block.
// A free block only carries the link, so the smallest block is one word.
const (
	BlockNextOffset = 0
	BlockMinSize    = 8
)

// VGABufferAddr is the physical (and identity-mapped virtual) base of the
// 80x25 text-mode buffer.
const VGABufferAddr = 0xb8000
