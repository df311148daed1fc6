package paging

import (
	"fmt"

	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/frame"
)

// parentFlags are the only flags an intermediate table entry gets; they are
// widened with UserAccessible when a user page is mapped beneath it.
const parentFlags = Present | Writable

// MappedPageTable edits a four-level hierarchy rooted at a level-4 table.
// Every table is reached through a TableAccess, so the same code serves the
// bootloader (raw physical access) and the kernel (offset window).
type MappedPageTable struct {
	root    *Level4Handle
	flusher Flusher
}

// NoFlush is the Flusher for tables that are not loaded in CR3 yet, such as
// the ones the bootloader builds. No TLB can hold their translations.
type NoFlush struct{}

// FlushPage does nothing.
func (NoFlush) FlushPage(addr.Page) {}

// NewMappedPageTable wraps root. Every change is flushed through flusher,
// which must not be nil; pass NoFlush for inactive tables.
func NewMappedPageTable(root *Level4Handle, flusher Flusher) *MappedPageTable {
	if flusher == nil {
		panic("paging: mapped page table without a TLB flusher")
	}
	return &MappedPageTable{root: root, flusher: flusher}
}

// OffsetMachine is what an offset page table needs from the CPU.
type OffsetMachine interface {
	RootRegister
	VirtualMemory
	Flusher
}

// Init acquires the active level-4 table of m and returns a mapper that
// reaches all tables through the window at offset. It is unsafe in the same
// way ActiveLevel4Table is and may succeed only once per machine.
func Init(m OffsetMachine, offset addr.VirtAddr) (*MappedPageTable, error) {
	root, err := ActiveLevel4Table(m, m, offset)
	if err != nil {
		return nil, err
	}
	return NewMappedPageTable(root, m), nil
}

// Root returns the handle on the level-4 table.
func (t *MappedPageTable) Root() *Level4Handle { return t.root }

func (t *MappedPageTable) flush(p addr.Page) { t.flusher.FlushPage(p) }

// nextTable returns the table entry idx of table points at, creating a
// zeroed table if the slot is unused.
func (t *MappedPageTable) nextTable(table addr.Frame, idx uint16, extra Flags, frames frame.Allocator) (addr.Frame, error) {
	acc := t.root.access
	e := acc.LoadEntry(table, idx)
	if e.IsUnused() {
		f, ok := frames.AllocateFrame()
		if !ok {
			return addr.Frame{}, ErrFrameAllocationFailed
		}
		acc.ZeroTable(f)
		acc.StoreEntry(table, idx, NewEntry(f, parentFlags|extra))
		return f, nil
	}
	if extra != 0 && !e.Flags().Contains(extra) {
		e = e.WithFlags(e.Flags() | extra)
		acc.StoreEntry(table, idx, e)
	}
	next, err := e.Frame()
	switch err {
	case nil:
		return next, nil
	case ErrHugeFrame:
		return addr.Frame{}, ErrParentEntryHugePage
	default:
		// Non-zero but not present: the slot is in use for something else.
		return addr.Frame{}, fmt.Errorf("paging: entry %d of %s: %w", idx, table, err)
	}
}

// walkCreate descends from the level-4 table to the table at depth levels,
// creating missing tables on the way.
func (t *MappedPageTable) walkCreate(v addr.VirtAddr, depth int, flags Flags, frames frame.Allocator) (addr.Frame, error) {
	extra := flags & UserAccessible
	table := t.root.frame
	for level := range depth {
		next, err := t.nextTable(table, v.TableIndex(level), extra, frames)
		if err != nil {
			return addr.Frame{}, err
		}
		table = next
	}
	return table, nil
}

// MapTo installs page -> f with flags, creating intermediate tables from
// frames as needed. The page's TLB entry is flushed before returning.
//
// The caller guarantees that f is not otherwise in use; aliasing a frame
// with live data breaks memory safety.
func (t *MappedPageTable) MapTo(page addr.Page, f addr.Frame, flags Flags, frames frame.Allocator) error {
	p1, err := t.walkCreate(page.StartAddress(), format.PageLevels-1, flags, frames)
	if err != nil {
		return err
	}
	idx := page.P1Index()
	if old := t.root.access.LoadEntry(p1, idx); !old.IsUnused() {
		return &AlreadyMappedError{Page: page, Frame: addr.FrameContaining(old.Addr())}
	}
	t.root.access.StoreEntry(p1, idx, NewEntry(f, flags|Present))
	t.flush(page)
	return nil
}

// MapHuge2MiB installs a 2 MiB mapping of phys at v in a level-2 entry.
// Both addresses must be 2 MiB aligned.
func (t *MappedPageTable) MapHuge2MiB(v addr.VirtAddr, phys addr.PhysAddr, flags Flags, frames frame.Allocator) error {
	if !v.IsAligned(format.HugePageSize2MiB) || !phys.IsAligned(format.HugePageSize2MiB) {
		return fmt.Errorf("paging: 2 MiB mapping %s -> %s: %w", v, phys, addr.ErrNotAligned)
	}
	p2, err := t.walkCreate(v, format.PageLevels-2, flags, frames)
	if err != nil {
		return err
	}
	idx := v.P2Index()
	if old := t.root.access.LoadEntry(p2, idx); !old.IsUnused() {
		return &AlreadyMappedError{Page: addr.PageContaining(v), Frame: addr.FrameContaining(old.Addr())}
	}
	t.root.access.StoreEntry(p2, idx, Entry(uint64(phys)&format.EntryAddrMask|uint64((flags|Present|HugePage)&flagMask)))
	for off := uint64(0); off < format.HugePageSize2MiB; off += format.PageSize {
		t.flush(addr.PageContaining(v.Add(off)))
	}
	return nil
}

// leaf finds the level-1 slot for page without creating anything.
func (t *MappedPageTable) leaf(page addr.Page) (addr.Frame, error) {
	acc := t.root.access
	table := t.root.frame
	v := page.StartAddress()
	for level := range format.PageLevels - 1 {
		next, err := acc.LoadEntry(table, v.TableIndex(level)).Frame()
		switch err {
		case nil:
			table = next
		case ErrHugeFrame:
			return addr.Frame{}, ErrParentEntryHugePage
		default:
			return addr.Frame{}, ErrPageNotMapped
		}
	}
	return table, nil
}

// Unmap removes the mapping for page and returns the frame it pointed at.
// The frame is not freed.
func (t *MappedPageTable) Unmap(page addr.Page) (addr.Frame, error) {
	p1, err := t.leaf(page)
	if err != nil {
		return addr.Frame{}, err
	}
	idx := page.P1Index()
	f, err := t.root.access.LoadEntry(p1, idx).Frame()
	if err != nil {
		return addr.Frame{}, ErrPageNotMapped
	}
	t.root.access.StoreEntry(p1, idx, 0)
	t.flush(page)
	return f, nil
}

// UpdateFlags replaces the flags of an existing 4 KiB mapping.
func (t *MappedPageTable) UpdateFlags(page addr.Page, flags Flags) error {
	p1, err := t.leaf(page)
	if err != nil {
		return err
	}
	idx := page.P1Index()
	e := t.root.access.LoadEntry(p1, idx)
	if !e.Flags().Contains(Present) {
		return ErrPageNotMapped
	}
	t.root.access.StoreEntry(p1, idx, e.WithFlags(flags|Present))
	t.flush(page)
	return nil
}

// Translation is the result of a successful translate.
type Translation struct {
	Phys     addr.PhysAddr
	Frame    addr.PhysAddr // start of the 4 KiB, 2 MiB or 1 GiB frame
	PageSize uint64
	Flags    Flags
}

// Translate resolves v, following huge entries at the level-3 and level-2
// tables.
func (t *MappedPageTable) Translate(v addr.VirtAddr) (Translation, error) {
	acc := t.root.access
	table := t.root.frame
	for level := range format.PageLevels {
		e := acc.LoadEntry(table, v.TableIndex(level))
		if !e.Flags().Contains(Present) {
			return Translation{}, ErrPageNotMapped
		}
		leaf := level == format.PageLevels-1
		if !leaf && level > 0 && e.Flags().Contains(HugePage) {
			size := uint64(format.HugePageSize2MiB)
			if level == 1 {
				size = format.HugePageSize1GiB
			}
			base := e.Addr().AlignDown(size)
			return Translation{
				Phys:     base.Add(uint64(v) & (size - 1)),
				Frame:    base,
				PageSize: size,
				Flags:    e.Flags(),
			}, nil
		}
		if leaf {
			return Translation{
				Phys:     e.Addr().Add(uint64(v.PageOffset())),
				Frame:    e.Addr(),
				PageSize: format.PageSize,
				Flags:    e.Flags(),
			}, nil
		}
		table = addr.FrameContaining(e.Addr())
	}
	panic("paging: unreachable end of translate")
}

// TranslateAddr is Translate without the detail.
func (t *MappedPageTable) TranslateAddr(v addr.VirtAddr) (addr.PhysAddr, bool) {
	tr, err := t.Translate(v)
	if err != nil {
		return 0, false
	}
	return tr.Phys, true
}

// MapRange maps every page in [start, end] to a fresh frame from frames.
// On failure the pages mapped so far stay mapped and the error names the
// first page that failed.
func (t *MappedPageTable) MapRange(start, end addr.Page, flags Flags, frames frame.Allocator) error {
	for page := range addr.PageRangeInclusive(start, end) {
		f, ok := frames.AllocateFrame()
		if !ok {
			return fmt.Errorf("paging: map %s: %w", page, ErrFrameAllocationFailed)
		}
		if err := t.MapTo(page, f, flags, frames); err != nil {
			return fmt.Errorf("paging: map %s: %w", page, err)
		}
	}
	return nil
}
