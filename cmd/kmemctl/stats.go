package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/heap"
	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/mem/machine"
)

var statsRun bool

func init() {
	cmd := newStatsCmd()
	cmd.Flags().BoolVar(&statsRun, "run", false, "Run the heap self checks before collecting")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show frame, MMU and heap statistics",
		Long: `The stats command boots a machine and shows how many frames the
boot consumed, the MMU counters and the heap strategy counters.

Example:
  kmemctl stats
  kmemctl stats --run --strategy fixed-size
  kmemctl stats --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context())
		},
	}
}

type KernelStats struct {
	RAMSize         uint64
	UsableBytes     uint64
	FramesAllocated uint64
	FramesRemaining uint64
	MMU             machine.Stats
	Heap            heap.Stats
}

func runStats(ctx context.Context) error {
	k, err := bootKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	if statsRun {
		k.RunScenarios()
	}

	stats := KernelStats{
		RAMSize:     k.Machine.MemorySize(),
		UsableBytes: k.BootInfo.MemoryMap.TotalUsable(),
		MMU:         k.Machine.Stats(),
		Heap:        k.Heap.Stats(),
	}
	stats.FramesAllocated, stats.FramesRemaining = k.FrameStats()

	if jsonOut {
		return printJSON(stats)
	}

	h := stats.Heap
	rows := [][]string{
		{"RAM", formatBytes(stats.RAMSize)},
		{"Usable", formatBytes(stats.UsableBytes)},
		{"Frames allocated", fmt.Sprint(stats.FramesAllocated)},
		{"Frames remaining", fmt.Sprint(stats.FramesRemaining)},
		{"TLB hits / misses", fmt.Sprintf("%d / %d", stats.MMU.TLBHits, stats.MMU.TLBMisses)},
		{"TLB entries", fmt.Sprint(stats.MMU.TLBEntries)},
		{"TLB flushes", fmt.Sprint(stats.MMU.Flushes)},
		{"Page faults", fmt.Sprint(stats.MMU.PageFaults)},
		{"Heap", fmt.Sprintf("%s at %#x, %s", h.Kind, h.Start.Uint64(), formatBytes(h.Size))},
		{"Alloc calls", fmt.Sprintf("%d (%d failed)", h.AllocCalls, h.AllocFailures)},
		{"Free calls", fmt.Sprint(h.FreeCalls)},
		{"Bytes allocated / freed", fmt.Sprintf("%s / %s", formatBytes(h.BytesAllocated), formatBytes(h.BytesFreed))},
		{"Live allocations", fmt.Sprint(h.Live)},
		{"Free regions", fmt.Sprintf("%d (%s)", h.FreeRegions, formatBytes(h.FreeBytes))},
	}
	switch h.Kind {
	case alloc.KindBump:
		rows = append(rows, []string{"Cursor", fmt.Sprintf("%#x", h.Cursor)})
	case alloc.KindFixedSize:
		rows = append(rows,
			[]string{"Bucket hits / carves", fmt.Sprintf("%d / %d", h.BucketHits, h.BucketCarves)},
			[]string{"Fallback allocations", fmt.Sprint(h.FallbackAllocs)},
		)
	}
	printInfo("%s\n", headerStyle.Render("Kernel Statistics"))
	printInfo("%s\n", renderTable([]string{"Metric", "Value"}, rows))
	return nil
}
