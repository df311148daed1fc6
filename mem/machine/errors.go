package machine

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kmemcore/mem/addr"
)

var (
	// ErrPageFault is matched by every *PageFault via errors.Is.
	ErrPageFault = errors.New("machine: page fault")

	// ErrPhysOutOfRange indicates a physical access beyond installed RAM.
	ErrPhysOutOfRange = errors.New("machine: physical address out of range")
)

// PageFault describes a failed hardware translation.
type PageFault struct {
	Addr  addr.VirtAddr
	Write bool
	// Protection is true when the entry was present but forbade the access,
	// false when the walk hit a non-present entry.
	Protection bool
	// Level is the table level (4..1) where the walk stopped.
	Level int
}

func (f *PageFault) Error() string {
	kind := "not present"
	if f.Protection {
		kind = "protection violation"
	}
	op := "read"
	if f.Write {
		op = "write"
	}
	return fmt.Sprintf("machine: page fault on %s of %#x (%s at P%d)", op, uint64(f.Addr), kind, f.Level)
}

// Unwrap lets errors.Is(err, ErrPageFault) match.
func (f *PageFault) Unwrap() error { return ErrPageFault }
