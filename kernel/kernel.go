// Package kernel wires the memory core together the way the kernel entry
// point does: boot the machine, build the frame allocator and mapper, map
// and initialize the heap, then enable interrupts.
package kernel

import (
	"context"
	"fmt"

	"github.com/joshuapare/kmemcore/console"
	"github.com/joshuapare/kmemcore/heap"
	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/boot"
	"github.com/joshuapare/kmemcore/mem/bootinfo"
	"github.com/joshuapare/kmemcore/mem/frame"
	"github.com/joshuapare/kmemcore/mem/machine"
	"github.com/joshuapare/kmemcore/mem/paging"
)

// Kernel is a booted machine with its memory subsystems.
type Kernel struct {
	Machine  *machine.Machine
	BootInfo *bootinfo.BootInfo
	Mapper   *paging.MappedPageTable
	Frames   frame.Allocator
	Heap     *heap.Heap
	Console  *console.Writer

	bootFrames *frame.BootInfoAllocator
	cfg        Config
}

// Boot validates cfg and brings the kernel up. A heap initialization
// failure is returned; the caller decides whether it is fatal.
func Boot(ctx context.Context, cfg Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.With("component", "kernel")

	m, info, err := boot.Load(cfg.bootOptions())
	if err != nil {
		return nil, err
	}
	k := &Kernel{Machine: m, BootInfo: info, cfg: cfg}
	if err := k.init(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}

	m.EnableInterrupts()
	log.Info("kernel: booted",
		"ram", cfg.RAMSize,
		"usable", info.MemoryMap.TotalUsable(),
		"heap", addr.VirtAddr(cfg.HeapStart).String(),
		"heap_size", cfg.HeapSize,
		"strategy", cfg.Strategy.String(),
		"frames_used", k.bootFrames.Allocated())
	return k, nil
}

func (k *Kernel) init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := k.Machine
	k.bootFrames = frame.NewBootInfo(k.BootInfo.MemoryMap)
	k.Frames = frame.NewLocked(k.bootFrames, m)

	mapper, err := paging.Init(m, k.BootInfo.PhysicalMemoryOffset)
	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	k.Mapper = mapper

	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := alloc.New(k.cfg.Strategy, m, k.cfg.SizeClasses)
	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	start := addr.NewVirtAddr(k.cfg.HeapStart)
	if err := heap.Init(k.Mapper, k.Frames, start, k.cfg.HeapSize, s); err != nil {
		return fmt.Errorf("kernel: heap initialization failed: %w", err)
	}
	k.Heap = heap.New(s, m, m, start, k.cfg.HeapSize)

	k.Console = console.NewVGA(m, m)
	return k.Console.Clear()
}

// Config returns the configuration the kernel booted with.
func (k *Kernel) Config() Config { return k.cfg }

// FrameStats reports how many usable frames were handed out and remain.
func (k *Kernel) FrameStats() (allocated, remaining uint64) {
	return k.bootFrames.Allocated(), k.bootFrames.Remaining()
}

// Close releases the machine's host memory.
func (k *Kernel) Close() error { return k.Machine.Close() }

// TranslateAddr resolves v through the active tables. With a huge
// physical-memory window the huge-aware mapper is used; otherwise the plain
// four-level walker, which panics on a huge entry.
func (k *Kernel) TranslateAddr(v addr.VirtAddr) (addr.PhysAddr, bool) {
	if k.cfg.HugeOffsetWindow {
		return k.Mapper.TranslateAddr(v)
	}
	return k.Mapper.Root().TranslateAddr(v)
}

// Translation is one resolved address.
type Translation struct {
	Name string
	Virt addr.VirtAddr
	Phys addr.PhysAddr
	OK   bool
}

// SampleAddresses are the addresses the boot sequence prints: the VGA
// buffer, a code page, a stack page and the start of the physical window.
func (k *Kernel) SampleAddresses() []Translation {
	return []Translation{
		{Name: "vga buffer", Virt: addr.NewVirtAddr(format.VGABufferAddr)},
		{Name: "code page", Virt: addr.NewVirtAddr(boot.KernelVirtBase + 0x1008)},
		{Name: "stack page", Virt: addr.NewVirtAddr(boot.StackVirtBase + 0x1a10)},
		{Name: "physical offset", Virt: k.BootInfo.PhysicalMemoryOffset},
	}
}

// TranslateSomeAddresses resolves SampleAddresses.
func (k *Kernel) TranslateSomeAddresses() []Translation {
	return k.TranslateAll(k.SampleAddresses())
}

// TranslateAll resolves every entry of ts in place and returns it.
func (k *Kernel) TranslateAll(ts []Translation) []Translation {
	for i := range ts {
		ts[i].Phys, ts[i].OK = k.TranslateAddr(ts[i].Virt)
	}
	return ts
}

// exampleWord is "New!" as four VGA cells, white on black.
const exampleWord = 0x_f021_f077_f065_f04e

// CreateExampleMapping maps page onto the VGA buffer frame and writes
// "New!" through it, which shows up on row 20 of the screen.
//
// Aliasing the VGA frame is only sound because both views are used for
// screen output.
func (k *Kernel) CreateExampleMapping(page addr.Page) error {
	vga := addr.FrameContaining(addr.NewPhysAddr(format.VGABufferAddr))
	if err := k.Mapper.MapTo(page, vga, paging.Present|paging.Writable, k.Frames); err != nil {
		return fmt.Errorf("kernel: example mapping: %w", err)
	}
	return k.Machine.WriteU64(page.StartAddress().Add(400*8), exampleWord)
}
