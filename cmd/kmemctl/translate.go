package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/kernel"
	"github.com/joshuapare/kmemcore/mem/addr"
)

func init() {
	rootCmd.AddCommand(newTranslateCmd())
}

func newTranslateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate [addr...]",
		Short: "Translate virtual addresses through the active page tables",
		Long: `The translate command walks the four-level page tables for each
virtual address and prints the physical address it maps to. Without
arguments it translates the VGA buffer, a code page, a stack page and the
start of the physical memory window.

Example:
  kmemctl translate
  kmemctl translate 0xb8000 0x444444440000
  kmemctl translate --huge-window 0x100000000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), args)
		},
	}
}

type translationReport struct {
	Name   string `json:"name,omitempty"`
	Virt   string `json:"virt"`
	Phys   string `json:"phys,omitempty"`
	Mapped bool   `json:"mapped"`
}

func newTranslationReport(t kernel.Translation) translationReport {
	r := translationReport{Name: t.Name, Virt: fmt.Sprintf("%#x", t.Virt.Uint64()), Mapped: t.OK}
	if t.OK {
		r.Phys = fmt.Sprintf("%#x", t.Phys.Uint64())
	}
	return r
}

// parseAddr accepts hex with or without 0x and underscores as digit
// separators.
func parseAddr(s string) (addr.VirtAddr, error) {
	clean := strings.ReplaceAll(strings.TrimPrefix(strings.ToLower(s), "0x"), "_", "")
	v, err := strconv.ParseUint(clean, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr.TryNewVirtAddr(v)
}

func runTranslate(ctx context.Context, args []string) error {
	k, err := bootKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	var ts []kernel.Translation
	if len(args) == 0 {
		ts = k.TranslateSomeAddresses()
	} else {
		for _, a := range args {
			v, err := parseAddr(a)
			if err != nil {
				return err
			}
			ts = append(ts, kernel.Translation{Virt: v})
		}
		ts = k.TranslateAll(ts)
	}

	reports := make([]translationReport, 0, len(ts))
	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		r := newTranslationReport(t)
		reports = append(reports, r)
		phys := r.Phys
		if !r.Mapped {
			phys = dimStyle.Render("unmapped")
		}
		rows = append(rows, []string{r.Name, r.Virt, phys})
	}

	if jsonOut {
		return printJSON(reports)
	}
	printInfo("%s\n", renderTable([]string{"Name", "Virtual", "Physical"}, rows))
	return nil
}
