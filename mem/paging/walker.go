package paging

import (
	"fmt"

	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// RootRegister exposes the CPU's page-table base register and the one-time
// claim on the table it points at.
type RootRegister interface {
	CR3() addr.Frame
	TryAcquireRoot() bool
}

// Level4Handle is the exclusive handle on the active level-4 table. It is a
// hardware resource: nothing in the type system stops two handles from
// editing the same table, so ActiveLevel4Table hands out at most one per
// machine.
type Level4Handle struct {
	frame  addr.Frame
	access TableAccess
}

// ActiveLevel4Table reads CR3 and returns the handle on the level-4 table it
// names, reached through the physical-memory window at offset.
//
// The caller must guarantee that all of physical memory is mapped at offset.
// A second call for the same machine fails with ErrRootAcquired.
func ActiveLevel4Table(cpu RootRegister, mem VirtualMemory, offset addr.VirtAddr) (*Level4Handle, error) {
	if !cpu.TryAcquireRoot() {
		return nil, ErrRootAcquired
	}
	return &Level4Handle{
		frame:  cpu.CR3(),
		access: OffsetAccess{Mem: mem, Offset: offset},
	}, nil
}

// NewLevel4Handle builds a handle on the level-4 table in root reached via
// access. It is meant for the bootloader and tests that own the table
// outright; kernel code uses ActiveLevel4Table.
func NewLevel4Handle(root addr.Frame, access TableAccess) *Level4Handle {
	return &Level4Handle{frame: root, access: access}
}

// Frame returns the physical frame holding the level-4 table.
func (h *Level4Handle) Frame() addr.Frame { return h.frame }

// TranslateAddr walks the four levels for v and returns the physical
// address it maps to, or false if some entry on the way is not present.
//
// This walker does not support huge pages: meeting a huge entry is a fatal
// error rather than a silent mistranslation, so it panics.
func (h *Level4Handle) TranslateAddr(v addr.VirtAddr) (addr.PhysAddr, bool) {
	table := h.frame
	for level := range format.PageLevels {
		e := h.access.LoadEntry(table, v.TableIndex(level))
		next, err := e.Frame()
		switch err {
		case nil:
			table = next
		case ErrFrameNotPresent:
			return 0, false
		case ErrHugeFrame:
			panic(fmt.Sprintf("paging: huge pages not supported (translating %s, P%d entry %s)", v, format.PageLevels-level, e))
		default:
			panic(err)
		}
	}
	return table.StartAddress().Add(uint64(v.PageOffset())), true
}

// TranslatePage returns the frame backing page. It shares TranslateAddr's
// refusal of huge pages but reports absence as ErrPageNotMapped.
func (h *Level4Handle) TranslatePage(page addr.Page) (addr.Frame, error) {
	pa, ok := h.TranslateAddr(page.StartAddress())
	if !ok {
		return addr.Frame{}, ErrPageNotMapped
	}
	return addr.FrameContaining(pa), nil
}

// Entries returns the used entries of table in slot order.
func (h *Level4Handle) Entries(table addr.Frame) []IndexedEntry {
	var out []IndexedEntry
	for i := range uint16(format.EntriesPerTable) {
		if e := h.access.LoadEntry(table, i); !e.IsUnused() {
			out = append(out, IndexedEntry{Index: i, Entry: e})
		}
	}
	return out
}

// Level4Entries returns the used entries of the level-4 table.
func (h *Level4Handle) Level4Entries() []IndexedEntry { return h.Entries(h.frame) }
