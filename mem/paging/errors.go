package paging

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kmemcore/mem/addr"
)

var (
	// ErrFrameNotPresent indicates an entry without the present bit.
	ErrFrameNotPresent = errors.New("paging: entry not present")

	// ErrHugeFrame indicates an entry that maps a huge page instead of
	// pointing at the next table.
	ErrHugeFrame = errors.New("paging: entry maps a huge page")

	// ErrFrameAllocationFailed indicates that an intermediate table could not
	// be created because the frame allocator is exhausted.
	ErrFrameAllocationFailed = errors.New("paging: frame allocation failed")

	// ErrParentEntryHugePage indicates that a table on the way to the page is
	// replaced by a huge page mapping.
	ErrParentEntryHugePage = errors.New("paging: parent entry maps a huge page")

	// ErrPageAlreadyMapped indicates that the page already has a mapping.
	ErrPageAlreadyMapped = errors.New("paging: page already mapped")

	// ErrPageNotMapped indicates that the page has no mapping to remove or
	// translate.
	ErrPageNotMapped = errors.New("paging: page not mapped")

	// ErrRootAcquired indicates a second attempt to take the active level-4
	// table as an exclusive handle.
	ErrRootAcquired = errors.New("paging: active level-4 table already acquired")
)

// AlreadyMappedError reports the frame an existing mapping points at.
type AlreadyMappedError struct {
	Page  addr.Page
	Frame addr.Frame
}

func (e *AlreadyMappedError) Error() string {
	return fmt.Sprintf("paging: %s already mapped to %s", e.Page, e.Frame)
}

// Unwrap lets errors.Is(err, ErrPageAlreadyMapped) match.
func (e *AlreadyMappedError) Unwrap() error { return ErrPageAlreadyMapped }
