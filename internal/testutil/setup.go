package testutil

import (
	"testing"

	"github.com/joshuapare/kmemcore/mem/boot"
	"github.com/joshuapare/kmemcore/mem/bootinfo"
	"github.com/joshuapare/kmemcore/mem/machine"
)

// SmallRAM is enough physical memory for the boot image, the 100 KiB heap
// and the tables mapping both.
const SmallRAM = 4 << 20

// BootMachine loads a machine with SmallRAM and default placement. The
// machine is closed when the test ends.
//
// Example:
//
//	m, info := testutil.BootMachine(t)
//	mapper, err := paging.Init(m, info.PhysicalMemoryOffset)
func BootMachine(t testing.TB) (*machine.Machine, *bootinfo.BootInfo) {
	t.Helper()
	opts := boot.DefaultOptions()
	opts.RAMSize = SmallRAM
	m, info, err := boot.Load(opts)
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, info
}
