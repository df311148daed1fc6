// Package machine simulates the parts of an x86-64 CPU that the memory core
// talks to: physical RAM, the CR3 page-table base register, the hardware page
// walk with its TLB, and the interrupt flag.
//
// # Physical and virtual access
//
// Physical accessors (ReadPhysU64, WritePhysU64, PhysSlice) address RAM
// directly, the way the hardware page walker does. Kernel code never uses
// them for ordinary memory: it goes through Read/Write/LoadU64/StoreU64, which
// translate the virtual address with the active tables exactly as the MMU
// would, consulting and filling the TLB.
//
// # TLB
//
// Translations are cached per 4 KiB page. Changing a present entry without
// calling FlushPage leaves the stale translation in place, just like real
// hardware; WriteCR3 drops every cached translation.
//
// # Faults
//
// A failed translation is reported as a *PageFault. LoadU64 and StoreU64
// panic with the fault instead, which models a fault raised where the kernel
// has no handler for it.
package machine
