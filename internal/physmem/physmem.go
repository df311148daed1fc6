// Package physmem provides the host memory that backs the simulated machine's
// physical address space.
package physmem

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kmemcore/internal/format"
)

// ErrBadSize indicates a RAM size that is zero or not a whole number of frames.
var ErrBadSize = errors.New("physmem: size must be a positive multiple of the page size")

func checkSize(size int) error {
	if size <= 0 || size%format.PageSize != 0 {
		return fmt.Errorf("%w (got %d)", ErrBadSize, size)
	}
	return nil
}
