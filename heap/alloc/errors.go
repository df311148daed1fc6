package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free memory large enough was found.
	ErrNoSpace = errors.New("alloc: no free region large enough")

	// ErrUnfit indicates that a free region cannot host an allocation of the
	// requested size and alignment.
	ErrUnfit = errors.New("alloc: region does not fit")

	// ErrBadLayout indicates a layout whose alignment is not a power of two
	// or whose padded size overflows.
	ErrBadLayout = errors.New("alloc: invalid layout")

	// ErrUnknownKind indicates a strategy name that ParseKind does not know.
	ErrUnknownKind = errors.New("alloc: unknown strategy")

	// ErrBadSizeClasses indicates a size-class configuration that does not
	// describe a power-of-two ladder.
	ErrBadSizeClasses = errors.New("alloc: invalid size classes")
)
