// Package boot simulates the bootloader: it sizes physical memory, places
// the kernel image and stack, builds the initial page tables and hands the
// kernel a memory map together with the physical-memory offset.
package boot

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kmemcore/internal/buf"
	"github.com/joshuapare/kmemcore/internal/format"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/mem/addr"
	"github.com/joshuapare/kmemcore/mem/bootinfo"
	"github.com/joshuapare/kmemcore/mem/machine"
	"github.com/joshuapare/kmemcore/mem/paging"
)

// Fixed placement of the boot image.
const (
	// LowMemoryEnd is the end of conventional memory; [LowMemoryEnd, 1 MiB)
	// is the reserved BIOS/VGA hole.
	LowMemoryEnd = 0x9f000

	// KernelPhysBase is where the kernel image is loaded in RAM.
	KernelPhysBase = 0x10_0000

	// KernelVirtBase is where the kernel image is mapped.
	KernelVirtBase = 0x20_0000

	// StackVirtBase is the bottom of the mapped boot stack.
	StackVirtBase = 0x0100_0020_0000

	// DefaultPhysicalMemoryOffset is where all of RAM is mapped.
	DefaultPhysicalMemoryOffset = 0x0000_1000_0000_0000

	// DefaultRAMSize is the RAM given to the machine when unset.
	DefaultRAMSize = 32 << 20

	// DefaultKernelImageSize is the size of the loaded kernel image.
	DefaultKernelImageSize = 64 << 10

	// DefaultStackPages is the boot stack size in pages.
	DefaultStackPages = 16

	// infoPages is the size of the region holding the encoded boot info.
	infoPages = 1
)

var (
	// ErrMemoryTooSmall indicates RAM too small to hold the boot image and
	// the initial page tables.
	ErrMemoryTooSmall = errors.New("boot: physical memory too small")

	// ErrBadOptions indicates options that cannot describe a machine.
	ErrBadOptions = errors.New("boot: invalid options")
)

// Options describes the machine to boot.
type Options struct {
	RAMSize              uint64        // bytes of physical memory, a whole number of frames
	PhysicalMemoryOffset addr.VirtAddr // where all of RAM is mapped
	KernelImageSize      uint64
	StackPages           int

	// HugeOffsetWindow maps the physical-memory window with 2 MiB pages
	// where RAM allows. The kernel's own walker refuses huge pages, so only
	// the huge-aware translator can see through such a window.
	HugeOffsetWindow bool
}

// DefaultOptions returns the layout used by the kernel binary.
func DefaultOptions() Options {
	return Options{
		RAMSize:              DefaultRAMSize,
		PhysicalMemoryOffset: addr.NewVirtAddr(DefaultPhysicalMemoryOffset),
		KernelImageSize:      DefaultKernelImageSize,
		StackPages:           DefaultStackPages,
	}
}

func (o Options) validate() error {
	switch {
	case o.RAMSize == 0 || o.RAMSize%format.PageSize != 0:
		return fmt.Errorf("%w: RAM size %#x is not a positive multiple of %#x", ErrBadOptions, o.RAMSize, format.PageSize)
	case o.KernelImageSize == 0:
		return fmt.Errorf("%w: empty kernel image", ErrBadOptions)
	case o.StackPages <= 0:
		return fmt.Errorf("%w: stack pages %d", ErrBadOptions, o.StackPages)
	}

	align := uint64(format.PageSize)
	if o.HugeOffsetWindow {
		align = format.HugePageSize2MiB
	}
	if !o.PhysicalMemoryOffset.IsAligned(align) {
		return fmt.Errorf("%w: physical memory offset %s not aligned to %#x", ErrBadOptions, o.PhysicalMemoryOffset, align)
	}
	lo := uint64(o.PhysicalMemoryOffset)
	hi, ok := buf.AddU64(lo, o.RAMSize-1)
	if !ok || !addr.IsCanonical(hi) || (lo < 1<<47) != (hi < 1<<47) {
		return fmt.Errorf("%w: physical memory window at %s does not fit one canonical half", ErrBadOptions, o.PhysicalMemoryOffset)
	}

	fixed := []struct {
		name       string
		start, end uint64
	}{
		{"VGA buffer", format.VGABufferAddr, format.VGABufferAddr + format.PageSize},
		{"kernel image", KernelVirtBase, KernelVirtBase + format.AlignUp(o.KernelImageSize, format.PageSize)},
		{"stack", StackVirtBase, StackVirtBase + uint64(o.StackPages)*format.PageSize},
	}
	for _, f := range fixed {
		if lo < f.end && f.start <= hi {
			return fmt.Errorf("%w: physical memory window overlaps the %s", ErrBadOptions, f.name)
		}
	}
	return nil
}

// tableFrames hands out page-table frames bottom-up from a region.
type tableFrames struct {
	next, end addr.PhysAddr
}

func (t *tableFrames) AllocateFrame() (addr.Frame, bool) {
	if t.next >= t.end {
		return addr.Frame{}, false
	}
	f := addr.FrameContaining(t.next)
	t.next = t.next.Add(format.PageSize)
	return f, true
}

// Load builds a machine according to opts and returns it with the boot
// information the kernel entry point receives. CR3 points at the new tables
// and interrupts are disabled.
func Load(opts Options) (*machine.Machine, *bootinfo.BootInfo, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	imageEnd := KernelPhysBase + format.AlignUp(opts.KernelImageSize, format.PageSize)
	stackEnd := imageEnd + uint64(opts.StackPages)*format.PageSize
	infoEnd := stackEnd + infoPages*format.PageSize
	if infoEnd >= opts.RAMSize {
		return nil, nil, fmt.Errorf("%w: %#x bytes, boot image needs %#x", ErrMemoryTooSmall, opts.RAMSize, infoEnd)
	}

	m, err := machine.NewWithRAM(int(opts.RAMSize))
	if err != nil {
		return nil, nil, fmt.Errorf("boot: allocate RAM: %w", err)
	}

	tables := &tableFrames{next: addr.PhysAddr(infoEnd), end: addr.PhysAddr(opts.RAMSize)}
	root, _ := tables.AllocateFrame()
	if err := m.ZeroFrame(root); err != nil {
		m.Close()
		return nil, nil, err
	}
	pt := paging.NewMappedPageTable(paging.NewLevel4Handle(root, paging.PhysAccess{Mem: m}), paging.NoFlush{})

	if err := buildTables(pt, tables, opts, imageEnd); err != nil {
		m.Close()
		if errors.Is(err, paging.ErrFrameAllocationFailed) {
			return nil, nil, fmt.Errorf("%w: out of frames for page tables: %v", ErrMemoryTooSmall, err)
		}
		return nil, nil, err
	}

	mm := bootinfo.MemoryMap{
		{Start: 0, End: format.PageSize, Kind: bootinfo.FrameZero},
		{Start: format.PageSize, End: LowMemoryEnd, Kind: bootinfo.Usable},
		{Start: LowMemoryEnd, End: KernelPhysBase, Kind: bootinfo.Reserved},
		{Start: KernelPhysBase, End: addr.PhysAddr(imageEnd), Kind: bootinfo.KernelImage},
		{Start: addr.PhysAddr(imageEnd), End: addr.PhysAddr(stackEnd), Kind: bootinfo.KernelStack},
		{Start: addr.PhysAddr(stackEnd), End: addr.PhysAddr(infoEnd), Kind: bootinfo.Bootloader},
		{Start: addr.PhysAddr(infoEnd), End: tables.next, Kind: bootinfo.PageTable},
	}
	if tables.next < addr.PhysAddr(opts.RAMSize) {
		mm = append(mm, bootinfo.MemoryRegion{Start: tables.next, End: addr.PhysAddr(opts.RAMSize), Kind: bootinfo.Usable})
	}

	info, err := m.PhysSlice(addr.PhysAddr(stackEnd), infoPages*format.PageSize)
	if err == nil {
		err = EncodeMemoryMap(info, mm)
	}
	if err != nil {
		m.Close()
		return nil, nil, err
	}

	m.WriteCR3(root)
	logger.Debug("boot: tables loaded",
		"ram", opts.RAMSize,
		"offset", opts.PhysicalMemoryOffset.String(),
		"table_frames", (uint64(tables.next)-infoEnd)/format.PageSize,
		"usable", mm.TotalUsable())

	return m, &bootinfo.BootInfo{MemoryMap: mm, PhysicalMemoryOffset: opts.PhysicalMemoryOffset}, nil
}

func buildTables(pt *paging.MappedPageTable, tables *tableFrames, opts Options, imageEnd uint64) error {
	window := paging.Present | paging.Writable | paging.NoExecute
	off := opts.PhysicalMemoryOffset
	var done uint64
	if opts.HugeOffsetWindow {
		for ; done+format.HugePageSize2MiB <= opts.RAMSize; done += format.HugePageSize2MiB {
			if err := pt.MapHuge2MiB(off.Add(done), addr.PhysAddr(done), window, tables); err != nil {
				return fmt.Errorf("boot: map window: %w", err)
			}
		}
	}
	for ; done < opts.RAMSize; done += format.PageSize {
		page := addr.PageContaining(off.Add(done))
		if err := pt.MapTo(page, addr.FrameContaining(addr.PhysAddr(done)), window, tables); err != nil {
			return fmt.Errorf("boot: map window: %w", err)
		}
	}

	vga := addr.PageContaining(format.VGABufferAddr)
	if err := pt.MapTo(vga, addr.FrameContaining(format.VGABufferAddr), paging.Present|paging.Writable, tables); err != nil {
		return fmt.Errorf("boot: map VGA buffer: %w", err)
	}

	for p := uint64(KernelPhysBase); p < imageEnd; p += format.PageSize {
		page := addr.PageContaining(addr.NewVirtAddr(KernelVirtBase + p - KernelPhysBase))
		if err := pt.MapTo(page, addr.FrameContaining(addr.PhysAddr(p)), paging.Present, tables); err != nil {
			return fmt.Errorf("boot: map kernel image: %w", err)
		}
	}

	for i := range uint64(opts.StackPages) {
		page := addr.PageContaining(addr.NewVirtAddr(StackVirtBase + i*format.PageSize))
		f := addr.FrameContaining(addr.PhysAddr(imageEnd + i*format.PageSize))
		if err := pt.MapTo(page, f, paging.Present|paging.Writable|paging.NoExecute, tables); err != nil {
			return fmt.Errorf("boot: map stack: %w", err)
		}
	}
	return nil
}

// Boot info record layout: a count followed by (start, end, kind) triples.
const (
	recordSize  = 24
	countOffset = 0
	firstRecord = 8
)

// EncodeMemoryMap writes mm into b the way the bootloader leaves it in RAM.
func EncodeMemoryMap(b []byte, mm bootinfo.MemoryMap) error {
	need := firstRecord + len(mm)*recordSize
	if len(b) < need {
		return fmt.Errorf("boot: memory map needs %d bytes, have %d", need, len(b))
	}
	buf.PutU64LE(b[countOffset:], uint64(len(mm)))
	for i, r := range mm {
		rec := b[firstRecord+i*recordSize:]
		buf.PutU64LE(rec[0:], uint64(r.Start))
		buf.PutU64LE(rec[8:], uint64(r.End))
		buf.PutU64LE(rec[16:], uint64(r.Kind))
	}
	return nil
}

// DecodeMemoryMap reads a memory map written by EncodeMemoryMap.
func DecodeMemoryMap(b []byte) (bootinfo.MemoryMap, error) {
	n := buf.U64LE(b)
	size, ok := buf.MulU64(n, recordSize)
	var body []byte
	if ok {
		body, ok = buf.Slice(b, firstRecord, size)
	}
	if !ok {
		return nil, fmt.Errorf("boot: truncated memory map (%d records)", n)
	}
	mm := make(bootinfo.MemoryMap, 0, n)
	for i := range n {
		rec := body[i*recordSize:]
		mm = append(mm, bootinfo.MemoryRegion{
			Start: addr.PhysAddr(buf.U64LE(rec[0:])),
			End:   addr.PhysAddr(buf.U64LE(rec[8:])),
			Kind:  bootinfo.RegionKind(buf.U64LE(rec[16:])),
		})
	}
	return mm, nil
}
