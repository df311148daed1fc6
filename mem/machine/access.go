package machine

import (
	"github.com/joshuapare/kmemcore/internal/buf"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Read copies len(p) bytes starting at virtual address v into p. The range
// may span pages; each page is translated separately.
func (m *Machine) Read(v addr.VirtAddr, p []byte) error {
	return m.access(v, p, false)
}

// Write copies p to virtual address v.
func (m *Machine) Write(v addr.VirtAddr, p []byte) error {
	return m.access(v, p, true)
}

func (m *Machine) access(v addr.VirtAddr, p []byte, write bool) error {
	cur := uint64(v)
	for len(p) > 0 {
		va := addr.NewVirtAddrTruncate(cur)
		pa, err := m.Translate(va, write)
		if err != nil {
			return err
		}
		n := min(uint64(len(p)), format.PageSize-uint64(va.PageOffset()))
		ram, err := m.PhysSlice(pa, n)
		if err != nil {
			return err
		}
		if write {
			copy(ram, p[:n])
		} else {
			copy(p[:n], ram)
		}
		p = p[n:]
		cur += n
	}
	return nil
}

// ReadU64 reads the little-endian word at v.
func (m *Machine) ReadU64(v addr.VirtAddr) (uint64, error) {
	var b [8]byte
	if err := m.Read(v, b[:]); err != nil {
		return 0, err
	}
	return buf.U64LE(b[:]), nil
}

// WriteU64 writes w at v.
func (m *Machine) WriteU64(v addr.VirtAddr, w uint64) error {
	var b [8]byte
	buf.PutU64LE(b[:], w)
	return m.Write(v, b[:])
}

// LoadU64 reads the word at v and panics on a page fault.
func (m *Machine) LoadU64(v addr.VirtAddr) uint64 {
	w, err := m.ReadU64(v)
	if err != nil {
		panic(err)
	}
	return w
}

// StoreU64 writes w at v and panics on a page fault.
func (m *Machine) StoreU64(v addr.VirtAddr, w uint64) {
	if err := m.WriteU64(v, w); err != nil {
		panic(err)
	}
}
