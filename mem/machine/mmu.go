package machine

import (
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// CR3 returns the frame of the active level-4 table.
func (m *Machine) CR3() addr.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cr3
}

// WriteCR3 switches to the level-4 table in f and drops every cached
// translation.
func (m *Machine) WriteCR3(f addr.Frame) {
	m.mu.Lock()
	m.cr3 = f
	clear(m.tlb)
	m.mu.Unlock()
	m.stats.cr3Writes.Add(1)
}

// FlushPage invalidates the cached translation for one page (INVLPG).
func (m *Machine) FlushPage(p addr.Page) {
	m.mu.Lock()
	delete(m.tlb, p)
	m.mu.Unlock()
	m.stats.flushes.Add(1)
}

// FlushAll invalidates every cached translation.
func (m *Machine) FlushAll() {
	m.mu.Lock()
	clear(m.tlb)
	m.mu.Unlock()
	m.stats.flushes.Add(1)
}

// IsCached reports whether the TLB holds a translation for p.
func (m *Machine) IsCached(p addr.Page) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tlb[p]
	return ok
}

// Translate resolves v the way the MMU does for a read (write=false) or a
// write access, using and filling the TLB.
func (m *Machine) Translate(v addr.VirtAddr, write bool) (addr.PhysAddr, error) {
	page := addr.PageContaining(v)
	off := uint64(v.PageOffset())

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.tlb[page]; ok && (!write || e.dirty) {
		m.stats.tlbHits.Add(1)
		return e.frame.StartAddress().Add(off), nil
	}
	m.stats.tlbMisses.Add(1)

	e, err := m.walk(v, write)
	if err != nil {
		m.stats.pageFaults.Add(1)
		return 0, err
	}
	m.tlb[page] = e
	return e.frame.StartAddress().Add(off), nil
}

// walk performs the four-level hardware walk starting at CR3. It sets the
// accessed bit on every entry it follows and the dirty bit on the leaf for
// writes. Huge entries at P3 and P2 terminate the walk. Caller holds m.mu.
func (m *Machine) walk(v addr.VirtAddr, write bool) (tlbEntry, error) {
	table := m.cr3.StartAddress()
	writable := true

	for level := range format.PageLevels {
		entryAddr := table.Add(uint64(v.TableIndex(level)) * format.EntrySize)
		raw, err := m.ReadPhysU64(entryAddr)
		if err != nil {
			return tlbEntry{}, err
		}
		fault := &PageFault{Addr: v, Write: write, Level: format.PageLevels - level}
		if raw&format.EntryPresent == 0 {
			return tlbEntry{}, fault
		}
		writable = writable && raw&format.EntryWritable != 0
		if write && !writable {
			fault.Protection = true
			return tlbEntry{}, fault
		}

		raw |= format.EntryAccessed
		leaf := level == format.PageLevels-1 || (level > 0 && raw&format.EntryHuge != 0)
		if leaf && write {
			raw |= format.EntryDirty
		}
		if err := m.WritePhysU64(entryAddr, raw); err != nil {
			return tlbEntry{}, err
		}

		base := addr.PhysAddr(raw & format.EntryAddrMask)
		if leaf {
			// For a huge leaf, pick the 4 KiB frame inside it that backs v.
			var span uint64 = format.PageSize
			switch level {
			case 1:
				span = format.HugePageSize1GiB
			case 2:
				span = format.HugePageSize2MiB
			}
			inner := format.AlignDown(uint64(v)&(span-1), format.PageSize)
			frame := addr.FrameContaining(base.AlignDown(span).Add(inner))
			return tlbEntry{frame: frame, writable: writable, dirty: write}, nil
		}
		table = base
	}
	panic("machine: unreachable end of page walk")
}
