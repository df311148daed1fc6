// Package addr defines the address types of the memory core.
//
// # Virtual addresses
//
// A VirtAddr is a 48-bit canonical x86-64 address: bits 48..63 must equal
// bit 47. The constructor rejects anything else so that every VirtAddr in the
// system can be decomposed into four 9-bit table indices and a 12-bit page
// offset, and rebuilt from them without loss:
//
//	63      48 47    39 38    30 29    21 20    12 11       0
//	| sign   | P4     | P3     | P2     | P1     | offset    |
//
// # Physical addresses
//
// A PhysAddr may use at most 52 bits.
//
// # Pages and frames
//
// Page and Frame name a 4 KiB unit of virtual and physical memory by its
// start address. Frames are handed out by the frame allocator and bound to
// pages by the mapper.
package addr
