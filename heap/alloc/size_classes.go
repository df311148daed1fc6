package alloc

import (
	"fmt"

	"github.com/joshuapare/kmemcore/internal/format"
)

// SizeClassConfig defines the block-size ladder of the FixedSize strategy.
// Every class is a power of two, so a block aligned to its own size
// satisfies any alignment up to that size.
type SizeClassConfig struct {
	// Name for this configuration (for stats and the CLI)
	Name string

	MinBlock uint64 // Smallest class, at least one word
	MaxBlock uint64 // Largest class; bigger requests use the fallback
	Step     uint   // log2 of the ratio between neighbouring classes
}

// Predefined configurations.
var (
	// Default: every power of two from 8 to 2048 (9 classes).
	ConfigDefault = SizeClassConfig{
		Name:     "Default",
		MinBlock: 8,
		MaxBlock: 2048,
		Step:     1,
	}

	// Coarse: 16, 64, 256, 1024. Fewer lists, more internal fragmentation.
	ConfigCoarse = SizeClassConfig{
		Name:     "Coarse",
		MinBlock: 16,
		MaxBlock: 1024,
		Step:     2,
	}

	// Large: 8 to 4096, so whole pages are still served from a class.
	ConfigLarge = SizeClassConfig{
		Name:     "Large",
		MinBlock: 8,
		MaxBlock: 4096,
		Step:     1,
	}
)

// SizeClassPresets lists the predefined configurations by name.
var SizeClassPresets = []SizeClassConfig{ConfigDefault, ConfigCoarse, ConfigLarge}

// sizeClassTable holds the computed block sizes in ascending order.
type sizeClassTable struct {
	config SizeClassConfig
	sizes  []uint64
}

// newSizeClassTable computes the ladder from config.
func newSizeClassTable(config SizeClassConfig) (*sizeClassTable, error) {
	switch {
	case !format.IsPowerOfTwo(config.MinBlock) || !format.IsPowerOfTwo(config.MaxBlock):
		return nil, fmt.Errorf("%w: %s bounds %d..%d must be powers of two", ErrBadSizeClasses, config.Name, config.MinBlock, config.MaxBlock)
	case config.MinBlock < format.BlockMinSize:
		return nil, fmt.Errorf("%w: %s smallest class %d cannot hold a link", ErrBadSizeClasses, config.Name, config.MinBlock)
	case config.MinBlock > config.MaxBlock:
		return nil, fmt.Errorf("%w: %s has MinBlock > MaxBlock", ErrBadSizeClasses, config.Name)
	case config.Step == 0 || config.Step > 8:
		return nil, fmt.Errorf("%w: %s step %d", ErrBadSizeClasses, config.Name, config.Step)
	}

	table := &sizeClassTable{config: config}
	size := config.MinBlock
	for size < config.MaxBlock {
		table.sizes = append(table.sizes, size)
		size <<= config.Step
	}
	// The ladder always ends exactly at MaxBlock, even when Step skips it.
	table.sizes = append(table.sizes, config.MaxBlock)
	return table, nil
}

// classFor returns the index of the smallest class that holds l, or
// len(t.sizes) when l needs the fallback. A block must cover both the size
// and the alignment because blocks are aligned to their own size.
func (t *sizeClassTable) classFor(l Layout) int {
	need := max(l.Size, l.Align)

	lo, hi := 0, len(t.sizes)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if need <= t.sizes[mid] {
			if mid == 0 || need > t.sizes[mid-1] {
				return mid
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return len(t.sizes)
}

// String returns a human-readable description of the size class table.
func (t *sizeClassTable) String() string {
	return t.config.Name
}

// NumClasses returns the number of size classes (excluding the fallback).
func (t *sizeClassTable) NumClasses() int {
	return len(t.sizes)
}
