package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/mem/addr"
)

var tablesDepth int

func init() {
	cmd := newTablesCmd()
	cmd.Flags().IntVar(&tablesDepth, "depth", 1, "Table levels to descend (1 = level 4 only, up to 4)")
	rootCmd.AddCommand(cmd)
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the used page table entries",
		Long: `The tables command lists the used entries of the active level-4
table after boot, including the heap mapping. With --depth it descends into
lower-level tables; huge entries end the descent.

Example:
  kmemctl tables
  kmemctl tables --depth 4 --heap-size 8192`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(cmd.Context())
		},
	}
}

type tableEntryReport struct {
	Level    int    `json:"level"`
	Index    uint16 `json:"index"`
	Virt     string `json:"virt"`
	Target   string `json:"target"`
	Flags    string `json:"flags"`
	Children int    `json:"children,omitempty"`
}

func runTables(ctx context.Context) error {
	if tablesDepth < 1 || tablesDepth > 4 {
		return fmt.Errorf("--depth must be between 1 and 4, got %d", tablesDepth)
	}
	k, err := bootKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	root := k.Mapper.Root()
	var out []tableEntryReport
	var walk func(table addr.Frame, level int, idx [4]uint16)
	walk = func(table addr.Frame, level int, idx [4]uint16) {
		for _, ie := range root.Entries(table) {
			idx[level-1] = ie.Index
			r := tableEntryReport{
				Level:  5 - level,
				Index:  ie.Index,
				Virt:   fmt.Sprintf("%#x", addr.FromIndices(idx[0], idx[1], idx[2], idx[3], 0).Uint64()),
				Target: fmt.Sprintf("%#x", ie.Entry.Addr().Uint64()),
				Flags:  ie.Entry.Flags().String(),
			}
			child, err := ie.Entry.Frame()
			if level < 4 && err == nil {
				r.Children = len(root.Entries(child))
			}
			out = append(out, r)
			if level < tablesDepth && err == nil {
				walk(child, level+1, idx)
			}
		}
	}
	walk(root.Frame(), 1, [4]uint16{})

	if jsonOut {
		return printJSON(out)
	}
	rows := make([][]string, 0, len(out))
	for _, r := range out {
		children := ""
		if r.Children > 0 {
			children = strconv.Itoa(r.Children)
		}
		rows = append(rows, []string{
			"P" + strconv.Itoa(r.Level), strconv.Itoa(int(r.Index)), r.Virt, r.Target, r.Flags, children,
		})
	}
	printInfo("Level 4 table at %s\n", headerStyle.Render(fmt.Sprintf("%#x", root.Frame().StartAddress().Uint64())))
	printInfo("%s\n", renderTable([]string{"Level", "Index", "Virtual", "Target", "Flags", "Used"}, rows))
	return nil
}
