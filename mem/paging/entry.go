package paging

import (
	"fmt"
	"strings"

	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Flags are the permission and status bits of a page-table entry.
type Flags uint64

const (
	Present        Flags = format.EntryPresent
	Writable       Flags = format.EntryWritable
	UserAccessible Flags = format.EntryUser
	WriteThrough   Flags = format.EntryWriteThrough
	NoCache        Flags = format.EntryNoCache
	Accessed       Flags = format.EntryAccessed
	Dirty          Flags = format.EntryDirty
	HugePage       Flags = format.EntryHuge
	Global         Flags = format.EntryGlobal
	NoExecute      Flags = format.EntryNoExecute
)

// flagMask covers every bit that is not part of the frame address.
const flagMask = ^Flags(format.EntryAddrMask)

var flagNames = []struct {
	f    Flags
	name string
}{
	{Present, "PRESENT"},
	{Writable, "WRITABLE"},
	{UserAccessible, "USER_ACCESSIBLE"},
	{WriteThrough, "WRITE_THROUGH"},
	{NoCache, "NO_CACHE"},
	{Accessed, "ACCESSED"},
	{Dirty, "DIRTY"},
	{HugePage, "HUGE_PAGE"},
	{Global, "GLOBAL"},
	{NoExecute, "NO_EXECUTE"},
}

// Contains reports whether every bit of o is set in f.
func (f Flags) Contains(o Flags) bool { return f&o == o }

func (f Flags) String() string {
	if f == 0 {
		return "(empty)"
	}
	var parts []string
	for _, n := range flagNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := f &^ (Present | Writable | UserAccessible | WriteThrough | NoCache | Accessed | Dirty | HugePage | Global | NoExecute); rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint64(rest)))
	}
	return strings.Join(parts, " | ")
}

// Entry is one 64-bit page-table entry.
type Entry uint64

// NewEntry builds an entry pointing at f with the given flags.
func NewEntry(f addr.Frame, flags Flags) Entry {
	return Entry(uint64(f.StartAddress())&format.EntryAddrMask | uint64(flags&flagMask))
}

// IsUnused reports whether the entry is all zeroes.
func (e Entry) IsUnused() bool { return e == 0 }

// Flags returns the flag bits.
func (e Entry) Flags() Flags { return Flags(e) & flagMask }

// Addr returns the physical address stored in the entry.
func (e Entry) Addr() addr.PhysAddr { return addr.PhysAddr(uint64(e) & format.EntryAddrMask) }

// Frame returns the frame the entry points at. It fails with
// ErrFrameNotPresent or ErrHugeFrame.
func (e Entry) Frame() (addr.Frame, error) {
	switch {
	case !e.Flags().Contains(Present):
		return addr.Frame{}, ErrFrameNotPresent
	case e.Flags().Contains(HugePage):
		return addr.Frame{}, ErrHugeFrame
	default:
		return addr.FrameContaining(e.Addr()), nil
	}
}

// Set points the entry at f with flags.
func (e *Entry) Set(f addr.Frame, flags Flags) { *e = NewEntry(f, flags) }

// WithFlags returns e with its flags replaced.
func (e Entry) WithFlags(flags Flags) Entry {
	return Entry(uint64(e)&format.EntryAddrMask | uint64(flags&flagMask))
}

func (e Entry) String() string {
	if e.IsUnused() {
		return "Entry(unused)"
	}
	return fmt.Sprintf("Entry(addr: %#x, flags: %s)", uint64(e.Addr()), e.Flags())
}

// IndexedEntry is a used entry together with its slot number.
type IndexedEntry struct {
	Index uint16
	Entry Entry
}
