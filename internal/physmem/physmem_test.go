package physmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapZeroedAndWritable(t *testing.T) {
	data, release, err := Map(4 * 4096)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, release())
	}()

	require.Len(t, data, 4*4096)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %#x", i, b)
		}
	}
	data[4096] = 0xab
	assert.Equal(t, byte(0xab), data[4096])
}

func TestMapReleaseTwice(t *testing.T) {
	_, release, err := Map(4096)
	require.NoError(t, err)
	require.NoError(t, release())
	assert.NoError(t, release())
}

func TestMapRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -4096, 100, 4097} {
		_, _, err := Map(size)
		assert.ErrorIs(t, err, ErrBadSize, "size %d", size)
	}
}
