// Package alloc implements the kernel heap strategies.
//
// # Overview
//
// Every strategy manages one contiguous, fully mapped virtual range handed to
// it once through Init. Strategies never touch page tables or frames; they
// only read and write words of the heap through a Memory.
//
// # Strategies
//
// Bump: a single cursor plus a live-allocation counter
//
//   - O(1) allocation, no per-allocation metadata
//   - Dealloc only decrements the counter
//   - The cursor returns to the heap start when the counter reaches zero
//
// LinkedList: first-fit over a chain of free regions
//
//   - Free Region Nodes are written inside the free bytes themselves
//   - Excess tail space of a region is re-added as a new free region
//   - Freed blocks go to the front of the chain; adjacent regions are not merged
//
// FixedSize: power-of-two size classes with a LinkedList fallback
//
//   - Requests up to the largest class are served from per-class free lists
//   - Empty classes carve a new block from the fallback
//   - Larger requests go straight to the fallback over the same heap
//
// # Free Region Nodes
//
// A free region starts with a 16-byte header:
//
//	0x00  size  uint64  bytes covered by the region, header included
//	0x08  next  uint64  address of the next node, 0 terminates the chain
//
// Nodes are 8-byte aligned. SizeAlign pads every request so that the freed
// block can later hold such a header.
//
// # Failure Policy
//
// Exhaustion is reported as ErrNoSpace and is never a panic inside a
// strategy. Contract violations (a second Init, a misaligned free region,
// releasing memory a Bump never handed out) panic at the violation site.
//
// # Thread Safety
//
// Strategies are not safe for concurrent use. Wrap them in Locked, which
// holds a mutex for exactly one operation with interrupts disabled.
package alloc
