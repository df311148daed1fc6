package main

import (
	"context"
	"fmt"

	"github.com/fogleman/gg"
	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/heap/container"
	"github.com/joshuapare/kmemcore/kernel"
	"github.com/joshuapare/kmemcore/mem/addr"
)

var (
	heapmapOut       string
	heapmapCellBytes uint64
	heapmapCols      int
	heapmapBoxes     int
)

const heapmapCellPx = 6

func init() {
	cmd := newHeapMapCmd()
	cmd.Flags().StringVarP(&heapmapOut, "out", "o", "heap.png", "PNG file to write")
	cmd.Flags().Uint64Var(&heapmapCellBytes, "cell", 64, "Heap bytes per cell")
	cmd.Flags().IntVar(&heapmapCols, "cols", 64, "Cells per row")
	cmd.Flags().IntVar(&heapmapBoxes, "boxes", 256, "Boxes to allocate before drawing; every other one is dropped")
	rootCmd.AddCommand(cmd)
}

func newHeapMapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heapmap",
		Short: "Draw heap occupancy as a PNG",
		Long: `The heapmap command allocates a mix of boxes and vectors, drops
every other box to fragment the heap, and draws which parts of the heap are
free. Each cell covers --cell bytes; a cell is free only if every byte in it
is on the free chain (or past the cursor for a bump heap). Blocks parked
on fixed-size class lists count as allocated.

Example:
  kmemctl heapmap --out heap.png
  kmemctl heapmap --strategy fixed-size --boxes 1024 --cell 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeapMap(cmd.Context())
		},
	}
}

func runHeapMap(ctx context.Context) error {
	if heapmapCellBytes == 0 || heapmapCols <= 0 {
		return fmt.Errorf("--cell and --cols must be positive")
	}
	k, err := bootKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	fragment(k, heapmapBoxes)

	occ := occupancy(k, heapmapCellBytes)
	dc := drawHeapMap(occ, heapmapCols)
	if err := dc.SavePNG(heapmapOut); err != nil {
		return fmt.Errorf("failed to write %s: %w", heapmapOut, err)
	}

	free := 0
	for _, used := range occ {
		if !used {
			free++
		}
	}
	printInfo("Wrote %s: %d cells, %d free (%s heap)\n", heapmapOut, len(occ), free, k.Heap.Kind())
	return nil
}

// fragment leaves n/2 boxes and a small vector live, with holes between
// the boxes. Allocation failures stop early.
func fragment(k *kernel.Kernel, n int) {
	var boxes []*container.Box
	for i := range n {
		b, err := container.TryNewBox(k.Heap, uint64(i))
		if err != nil {
			break
		}
		boxes = append(boxes, b)
	}
	for i, b := range boxes {
		if i%2 == 0 {
			b.Drop()
		}
	}
	defer func() { _ = recover() }()
	container.VecFrom(k.Heap, 1, 2, 3, 4, 5, 6, 7, 8, 9)
}

// occupancy splits the heap into cells of cellBytes and reports which hold
// any allocated byte.
func occupancy(k *kernel.Kernel, cellBytes uint64) []bool {
	start, size := k.Heap.Bounds()
	cells := int((size + cellBytes - 1) / cellBytes)
	used := make([]bool, cells)
	for i := range used {
		used[i] = true
	}

	var free []alloc.Region
	if st := k.Heap.Stats(); st.Kind == alloc.KindBump {
		free = []alloc.Region{{Addr: addr.VirtAddr(st.Cursor), Size: start.Uint64() + size - st.Cursor}}
	} else {
		free = k.Heap.FreeRegions()
	}
	for _, r := range free {
		off := r.Addr.Sub(start)
		first := (off + cellBytes - 1) / cellBytes
		last := (off + r.Size) / cellBytes
		for c := first; c < last && c < uint64(cells); c++ {
			used[c] = false
		}
	}
	return used
}

func drawHeapMap(used []bool, cols int) *gg.Context {
	rows := (len(used) + cols - 1) / cols
	const legend = 20
	dc := gg.NewContext(cols*heapmapCellPx, rows*heapmapCellPx+legend)
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.Clear()

	for i, u := range used {
		x := float64(i%cols) * heapmapCellPx
		y := float64(i/cols) * heapmapCellPx
		if u {
			dc.SetHexColor("#FF4B4B")
		} else {
			dc.SetHexColor("#04B575")
		}
		dc.DrawRectangle(x+0.5, y+0.5, heapmapCellPx-1, heapmapCellPx-1)
		dc.Fill()
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString("red: allocated  green: free", 4, float64(rows*heapmapCellPx)+14)
	return dc
}
