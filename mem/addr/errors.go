package addr

import "errors"

var (
	// ErrNonCanonical indicates a virtual address whose bits 48..63 are not a
	// sign extension of bit 47.
	ErrNonCanonical = errors.New("addr: non-canonical virtual address")

	// ErrPhysTooWide indicates a physical address with bits above bit 51 set.
	ErrPhysTooWide = errors.New("addr: physical address wider than 52 bits")

	// ErrNotAligned indicates an address that does not start a page or frame.
	ErrNotAligned = errors.New("addr: address is not page aligned")
)
