package machine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/kmemcore/internal/buf"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/internal/physmem"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// Machine is one simulated CPU with its physical memory.
type Machine struct {
	ram     []byte
	release func() error

	// mu guards cr3 and tlb.
	mu  sync.Mutex
	cr3 addr.Frame
	tlb map[addr.Page]tlbEntry

	interrupts atomic.Bool
	stats      statCounters

	// acquired is set once the active level-4 table has been handed out as
	// an exclusive handle.
	acquired atomic.Bool
}

type tlbEntry struct {
	frame    addr.Frame
	writable bool
	dirty    bool
}

type statCounters struct {
	tlbHits    atomic.Uint64
	tlbMisses  atomic.Uint64
	flushes    atomic.Uint64
	pageFaults atomic.Uint64
	cr3Writes  atomic.Uint64
}

// Stats is a snapshot of the MMU counters.
type Stats struct {
	TLBHits    uint64
	TLBMisses  uint64
	TLBEntries int
	Flushes    uint64 // FlushPage + FlushAll calls
	PageFaults uint64
	CR3Writes  uint64
}

// New wraps ram as the machine's physical memory. len(ram) must be a whole
// number of frames. Interrupts start disabled, as they are when the
// bootloader jumps to the kernel.
func New(ram []byte) *Machine {
	if len(ram) == 0 || len(ram)%format.PageSize != 0 {
		panic(fmt.Sprintf("machine: RAM size %d is not a positive multiple of the page size", len(ram)))
	}
	return &Machine{
		ram: ram,
		tlb: make(map[addr.Page]tlbEntry),
	}
}

// NewWithRAM maps size bytes of host memory and builds a machine over it.
// Close releases the mapping.
func NewWithRAM(size int) (*Machine, error) {
	ram, release, err := physmem.Map(size)
	if err != nil {
		return nil, err
	}
	m := New(ram)
	m.release = release
	return m, nil
}

// Close releases host memory obtained by NewWithRAM. The machine must not be
// used afterwards.
func (m *Machine) Close() error {
	if m.release == nil {
		return nil
	}
	err := m.release()
	m.release = nil
	m.ram = nil
	return err
}

// MemorySize returns the amount of installed RAM in bytes.
func (m *Machine) MemorySize() uint64 { return uint64(len(m.ram)) }

// Stats returns a snapshot of the MMU counters.
func (m *Machine) Stats() Stats {
	m.mu.Lock()
	entries := len(m.tlb)
	m.mu.Unlock()
	return Stats{
		TLBHits:    m.stats.tlbHits.Load(),
		TLBMisses:  m.stats.tlbMisses.Load(),
		TLBEntries: entries,
		Flushes:    m.stats.flushes.Load(),
		PageFaults: m.stats.pageFaults.Load(),
		CR3Writes:  m.stats.cr3Writes.Load(),
	}
}

// TryAcquireRoot marks the active level-4 table as exclusively owned. It
// returns false if it was already acquired.
func (m *Machine) TryAcquireRoot() bool {
	return m.acquired.CompareAndSwap(false, true)
}

// PhysSlice returns the n bytes of RAM starting at p.
func (m *Machine) PhysSlice(p addr.PhysAddr, n uint64) ([]byte, error) {
	b, ok := buf.Slice(m.ram, uint64(p), n)
	if !ok {
		return nil, fmt.Errorf("%w: %#x+%d (RAM is %d bytes)", ErrPhysOutOfRange, uint64(p), n, len(m.ram))
	}
	return b, nil
}

// ReadPhysU64 reads the little-endian word at physical address p.
func (m *Machine) ReadPhysU64(p addr.PhysAddr) (uint64, error) {
	b, err := m.PhysSlice(p, 8)
	if err != nil {
		return 0, err
	}
	return buf.U64LE(b), nil
}

// WritePhysU64 writes v at physical address p.
func (m *Machine) WritePhysU64(p addr.PhysAddr, v uint64) error {
	b, err := m.PhysSlice(p, 8)
	if err != nil {
		return err
	}
	buf.PutU64LE(b, v)
	return nil
}

// ZeroFrame clears the frame f in physical memory.
func (m *Machine) ZeroFrame(f addr.Frame) error {
	b, err := m.PhysSlice(f.StartAddress(), addr.Size4KiB)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}
