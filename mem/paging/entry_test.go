package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kmemcore/mem/addr"
)

func TestEntryFrame(t *testing.T) {
	f := addr.FrameContaining(0x1234_5000)

	var e Entry
	assert.True(t, e.IsUnused())
	_, err := e.Frame()
	assert.ErrorIs(t, err, ErrFrameNotPresent)

	e.Set(f, Present|Writable)
	got, err := e.Frame()
	require.NoError(t, err)
	assert.Equal(t, f, got)
	assert.Equal(t, addr.PhysAddr(0x1234_5000), e.Addr())
	assert.True(t, e.Flags().Contains(Present|Writable))
	assert.False(t, e.Flags().Contains(UserAccessible))

	e = e.WithFlags(Present | HugePage)
	_, err = e.Frame()
	assert.ErrorIs(t, err, ErrHugeFrame)
	assert.Equal(t, addr.PhysAddr(0x1234_5000), e.Addr(), "address survives a flag change")
}

func TestEntryKeepsNoExecute(t *testing.T) {
	e := NewEntry(addr.FrameContaining(0x5000), Present|NoExecute)
	assert.True(t, e.Flags().Contains(NoExecute))
	assert.Equal(t, addr.PhysAddr(0x5000), e.Addr())
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "PRESENT | WRITABLE", (Present | Writable).String())
	assert.Equal(t, "(empty)", Flags(0).String())
	assert.Contains(t, NewEntry(addr.FrameContaining(0x2000), Present).String(), "0x2000")
	assert.Equal(t, "Entry(unused)", Entry(0).String())
}
