package machine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/mem/addr"
)

// tableBuilder hands out frames from the bottom of RAM and links tables by
// hand, independent of the paging package.
type tableBuilder struct {
	t    testing.TB
	m    *Machine
	next uint64
}

func newTestMachine(t testing.TB, frames int) (*Machine, *tableBuilder) {
	t.Helper()
	m := New(make([]byte, frames*format.PageSize))
	b := &tableBuilder{t: t, m: m, next: format.PageSize}
	root := b.frame()
	m.WriteCR3(root)
	return m, b
}

func (b *tableBuilder) frame() addr.Frame {
	b.t.Helper()
	f, err := addr.FrameFromStart(addr.PhysAddr(b.next))
	require.NoError(b.t, err)
	b.next += format.PageSize
	require.NoError(b.t, b.m.ZeroFrame(f))
	return f
}

// mapPage installs v -> f with leaf flags, creating intermediate tables.
// stopLevel 3 maps a 4 KiB page, 2 a 2 MiB huge page.
func (b *tableBuilder) mapPage(v addr.VirtAddr, f addr.Frame, leaf uint64, stopLevel int) {
	b.t.Helper()
	table := b.m.CR3().StartAddress()
	for level := 0; level < stopLevel; level++ {
		ea := table.Add(uint64(v.TableIndex(level)) * format.EntrySize)
		raw, err := b.m.ReadPhysU64(ea)
		require.NoError(b.t, err)
		if raw&format.EntryPresent == 0 {
			nt := b.frame()
			raw = uint64(nt.StartAddress()) | format.EntryPresent | format.EntryWritable
			require.NoError(b.t, b.m.WritePhysU64(ea, raw))
		}
		table = addr.PhysAddr(raw & format.EntryAddrMask)
	}
	ea := table.Add(uint64(v.TableIndex(stopLevel)) * format.EntrySize)
	require.NoError(b.t, b.m.WritePhysU64(ea, uint64(f.StartAddress())|leaf))
}

func (b *tableBuilder) leafEntry(v addr.VirtAddr) addr.PhysAddr {
	table := b.m.CR3().StartAddress()
	for level := 0; level < format.PageLevels-1; level++ {
		raw, err := b.m.ReadPhysU64(table.Add(uint64(v.TableIndex(level)) * format.EntrySize))
		require.NoError(b.t, err)
		table = addr.PhysAddr(raw & format.EntryAddrMask)
	}
	return table.Add(uint64(v.P1Index()) * format.EntrySize)
}

func TestNewRejectsPartialFrames(t *testing.T) {
	assert.Panics(t, func() { New(make([]byte, 100)) })
	assert.Panics(t, func() { New(nil) })
}

func TestNewWithRAM(t *testing.T) {
	m, err := NewWithRAM(64 * format.PageSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(64*format.PageSize), m.MemorySize())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestPhysAccessBounds(t *testing.T) {
	m, _ := newTestMachine(t, 4)
	require.NoError(t, m.WritePhysU64(0x1ff8, 0xdead_beef))
	v, err := m.ReadPhysU64(0x1ff8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdead_beef), v)

	_, err = m.ReadPhysU64(addr.PhysAddr(4*format.PageSize - 4))
	assert.ErrorIs(t, err, ErrPhysOutOfRange)
}

func TestTranslateMappedPage(t *testing.T) {
	m, b := newTestMachine(t, 16)
	data := b.frame()
	v := addr.NewVirtAddr(0x_4444_4444_0000)
	b.mapPage(v, data, format.EntryPresent|format.EntryWritable, 3)

	pa, err := m.Translate(v.Add(0x123), false)
	require.NoError(t, err)
	assert.Equal(t, data.StartAddress().Add(0x123), pa)

	require.NoError(t, m.WriteU64(v.Add(8), 42))
	raw, err := m.ReadPhysU64(data.StartAddress().Add(8))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), raw)
	assert.Equal(t, uint64(42), m.LoadU64(v.Add(8)))
}

func TestAccessedAndDirtyBits(t *testing.T) {
	m, b := newTestMachine(t, 16)
	v := addr.NewVirtAddr(0x20_0000)
	b.mapPage(v, b.frame(), format.EntryPresent|format.EntryWritable, 3)
	leaf := b.leafEntry(v)

	_, err := m.ReadU64(v)
	require.NoError(t, err)
	raw, _ := m.ReadPhysU64(leaf)
	assert.NotZero(t, raw&format.EntryAccessed)
	assert.Zero(t, raw&format.EntryDirty)

	require.NoError(t, m.WriteU64(v, 1))
	raw, _ = m.ReadPhysU64(leaf)
	assert.NotZero(t, raw&format.EntryDirty)
}

func TestNotPresentFault(t *testing.T) {
	m, _ := newTestMachine(t, 4)
	_, err := m.ReadU64(addr.NewVirtAddr(0xdead_b000))

	var pf *PageFault
	require.True(t, errors.As(err, &pf))
	assert.ErrorIs(t, err, ErrPageFault)
	assert.False(t, pf.Protection)
	assert.Equal(t, 4, pf.Level)
	assert.Equal(t, uint64(1), m.Stats().PageFaults)

	assert.Panics(t, func() { m.LoadU64(addr.NewVirtAddr(0xdead_b000)) })
}

func TestWriteProtectionFault(t *testing.T) {
	m, b := newTestMachine(t, 16)
	v := addr.NewVirtAddr(0x20_1000)
	b.mapPage(v, b.frame(), format.EntryPresent, 3)

	_, err := m.ReadU64(v)
	require.NoError(t, err)

	err = m.WriteU64(v, 1)
	var pf *PageFault
	require.True(t, errors.As(err, &pf))
	assert.True(t, pf.Protection)
	assert.True(t, pf.Write)
	assert.Panics(t, func() { m.StoreU64(v, 1) })
}

func TestStaleTranslationUntilFlush(t *testing.T) {
	m, b := newTestMachine(t, 16)
	v := addr.NewVirtAddr(0x40_0000)
	first, second := b.frame(), b.frame()
	b.mapPage(v, first, format.EntryPresent|format.EntryWritable, 3)

	pa, err := m.Translate(v, false)
	require.NoError(t, err)
	require.Equal(t, first.StartAddress(), pa)
	require.True(t, m.IsCached(addr.PageContaining(v)))

	// Retarget the leaf entry behind the TLB's back.
	require.NoError(t, m.WritePhysU64(b.leafEntry(v), uint64(second.StartAddress())|format.EntryPresent|format.EntryWritable))

	pa, err = m.Translate(v, false)
	require.NoError(t, err)
	assert.Equal(t, first.StartAddress(), pa, "translation must stay stale until flushed")

	m.FlushPage(addr.PageContaining(v))
	assert.False(t, m.IsCached(addr.PageContaining(v)))
	pa, err = m.Translate(v, false)
	require.NoError(t, err)
	assert.Equal(t, second.StartAddress(), pa)
}

func TestWriteCR3FlushesTLB(t *testing.T) {
	m, b := newTestMachine(t, 16)
	v := addr.NewVirtAddr(0x40_0000)
	b.mapPage(v, b.frame(), format.EntryPresent|format.EntryWritable, 3)
	_, err := m.Translate(v, false)
	require.NoError(t, err)
	require.Equal(t, 1, m.Stats().TLBEntries)

	m.WriteCR3(m.CR3())
	assert.Zero(t, m.Stats().TLBEntries)
}

func TestHugePageWalk(t *testing.T) {
	m, b := newTestMachine(t, 1024)
	base := addr.NewVirtAddr(0x4000_0000)
	// 2 MiB page backed by physical 0x200000.
	b.mapPage(base, addr.FrameContaining(0x20_0000), format.EntryPresent|format.EntryWritable|format.EntryHuge, 2)

	pa, err := m.Translate(base.Add(0x12_3456), false)
	require.NoError(t, err)
	assert.Equal(t, addr.PhysAddr(0x20_0000+0x12_3456), pa)
}

func TestReadWriteAcrossPages(t *testing.T) {
	m, b := newTestMachine(t, 16)
	v := addr.NewVirtAddr(0x60_0000)
	b.mapPage(v, b.frame(), format.EntryPresent|format.EntryWritable, 3)
	b.mapPage(v.Add(format.PageSize), b.frame(), format.EntryPresent|format.EntryWritable, 3)

	msg := []byte("spans two frames")
	at := v.Add(format.PageSize - 5)
	require.NoError(t, m.Write(at, msg))

	got := make([]byte, len(msg))
	require.NoError(t, m.Read(at, got))
	assert.Equal(t, msg, got)
}

func TestWithoutInterrupts(t *testing.T) {
	m := New(make([]byte, format.PageSize))
	assert.False(t, m.InterruptsEnabled())

	m.EnableInterrupts()
	var inside bool
	m.WithoutInterrupts(func() { inside = m.InterruptsEnabled() })
	assert.False(t, inside)
	assert.True(t, m.InterruptsEnabled())

	assert.Panics(t, func() {
		m.WithoutInterrupts(func() { panic("handler") })
	})
	assert.True(t, m.InterruptsEnabled(), "flag restored after panic")
}

func TestTryAcquireRoot(t *testing.T) {
	m := New(make([]byte, format.PageSize))
	assert.True(t, m.TryAcquireRoot())
	assert.False(t, m.TryAcquireRoot())
}
