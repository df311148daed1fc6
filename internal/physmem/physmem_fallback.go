//go:build !unix

package physmem

// Map allocates simulated RAM from the Go heap when mmap is not available.
func Map(size int) ([]byte, func() error, error) {
	if err := checkSize(size); err != nil {
		return nil, nil, err
	}
	return make([]byte, size), func() error { return nil }, nil
}
