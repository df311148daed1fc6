package alloc

// Stats are the counters every strategy keeps.
type Stats struct {
	AllocCalls     int    // Total Alloc() calls
	AllocFailures  int    // Alloc() calls that returned ErrNoSpace
	FreeCalls      int    // Total Dealloc() calls
	BytesAllocated uint64 // Block bytes handed out
	BytesFreed     uint64 // Block bytes taken back, counted as on Alloc
	Live           int    // Outstanding allocations

	// Free-list strategies.
	FreeRegions int    // Nodes on the chain
	FreeBytes   uint64 // Bytes covered by the chain

	// FixedSize only.
	BucketHits     int // Allocations served from a class free list
	BucketCarves   int // Class blocks carved from the fallback
	FallbackAllocs int // Allocations above the largest class

	// Bump only.
	Cursor uint64 // Next address the cursor hands out
}

func (s *Stats) recordAlloc(bytes uint64) {
	s.AllocCalls++
	s.BytesAllocated += bytes
	s.Live++
}

func (s *Stats) recordFailure() {
	s.AllocCalls++
	s.AllocFailures++
}

func (s *Stats) recordFree(bytes uint64) {
	s.FreeCalls++
	s.BytesFreed += bytes
	s.Live--
}
