package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout(t *testing.T) {
	l, err := NewLayout(24, 8)
	require.NoError(t, err)
	assert.Equal(t, Layout{Size: 24, Align: 8}, l)

	_, err = NewLayout(8, 3)
	assert.ErrorIs(t, err, ErrBadLayout)
	_, err = NewLayout(8, 0)
	assert.ErrorIs(t, err, ErrBadLayout)
	_, err = NewLayout(^uint64(0), 16)
	assert.ErrorIs(t, err, ErrBadLayout)

	assert.Panics(t, func() { MustLayout(1, 6) })
}

func TestLayoutAdjust(t *testing.T) {
	l := MustLayout(5, 1)
	assert.Equal(t, Layout{Size: 5, Align: 8}, l.AlignTo(8))
	assert.Equal(t, Layout{Size: 8, Align: 8}, l.AlignTo(8).PadToAlign())
	assert.Equal(t, Layout{Size: 5, Align: 16}, MustLayout(5, 16).AlignTo(8))
	assert.Equal(t, Layout{Size: 80, Align: 8}, LayoutFor(10))
	assert.Panics(t, func() { MustLayout(^uint64(0)-2, 1).AlignTo(8).PadToAlign() })
}

func TestSizeAlign(t *testing.T) {
	var l freeList
	tests := []struct {
		in          Layout
		size, align uint64
	}{
		{MustLayout(1, 1), 16, 8},
		{MustLayout(8, 8), 16, 8},
		{MustLayout(17, 8), 24, 8},
		{MustLayout(20, 4), 24, 8},
		{MustLayout(40, 32), 64, 32},
		// Valid at align 1 but wraps once raised to a node alignment.
		{MustLayout(^uint64(0)-2, 1), ^uint64(0), 8},
	}
	for _, tt := range tests {
		size, align := l.SizeAlign(tt.in)
		assert.Equal(t, tt.size, size, "%s", tt.in)
		assert.Equal(t, tt.align, align, "%s", tt.in)
	}
}
