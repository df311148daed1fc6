package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kmemcore/heap/alloc"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"non-canonical heap", func(c *Config) { c.HeapStart = 0x0000_8000_0000_0000 }},
		{"unaligned heap", func(c *Config) { c.HeapStart += 8 }},
		{"tiny heap", func(c *Config) { c.HeapSize = 8 }},
		{"heap crosses canonical half", func(c *Config) { c.HeapStart = 0x0000_7fff_ffff_f000; c.HeapSize = 0x2000 }},
		{"non-canonical offset", func(c *Config) { c.PhysicalMemoryOffset = 0x0000_9000_0000_0000 }},
		{"heap inside window", func(c *Config) { c.HeapStart = c.PhysicalMemoryOffset + 0x1000 }},
		{"heap larger than ram", func(c *Config) { c.RAMSize = 64 << 10 }},
		{"unknown strategy", func(c *Config) { c.Strategy = alloc.Kind(42) }},
		{"bad size classes", func(c *Config) {
			c.Strategy = alloc.KindFixedSize
			c.SizeClasses = alloc.SizeClassConfig{Name: "broken", MinBlock: 12, MaxBlock: 64, Step: 1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestBootOptionsCarryLayout(t *testing.T) {
	c := DefaultConfig()
	c.RAMSize = 8 << 20
	c.HugeOffsetWindow = true
	opts := c.bootOptions()
	assert.Equal(t, uint64(8<<20), opts.RAMSize)
	assert.True(t, opts.HugeOffsetWindow)
	assert.Equal(t, c.PhysicalMemoryOffset, opts.PhysicalMemoryOffset.Uint64())
}
