package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/console"
	"github.com/joshuapare/kmemcore/kernel"
	"github.com/joshuapare/kmemcore/mem/addr"
)

var (
	bootExamplePage uint64
	bootNoExample   bool
)

func init() {
	cmd := newBootCmd()
	cmd.Flags().Uint64Var(&bootExamplePage, "example-page", 0xdead_beaf_000, "Page to alias onto the VGA buffer")
	cmd.Flags().BoolVar(&bootNoExample, "no-example", false, "Skip the example mapping")
	rootCmd.AddCommand(cmd)
}

func newBootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Run the kernel boot sequence and show the screen",
		Long: `The boot command runs the whole kernel entry point: it prints a
greeting, translates a few well-known addresses, aliases a page onto the
VGA buffer, runs the heap self checks and shows what ended up on screen.

Example:
  kmemctl boot
  kmemctl boot --strategy fixed-size --huge-window
  kmemctl boot --example-page 0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd.Context())
		},
	}
}

type bootReport struct {
	Strategy     string              `json:"strategy"`
	FramesUsed   uint64              `json:"frames_used"`
	Translations []translationReport `json:"translations"`
	Scenarios    []scenarioReport    `json:"scenarios"`
	Screen       []string            `json:"screen"`
}

func runBoot(ctx context.Context) error {
	k, err := bootKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	con := k.Console
	if err := con.Println("Hello World!"); err != nil {
		return err
	}

	report := bootReport{Strategy: k.Heap.Kind().String()}
	for _, t := range k.TranslateSomeAddresses() {
		report.Translations = append(report.Translations, newTranslationReport(t))
		if err := con.Printf("%#x -> %s\n", t.Virt.Uint64(), physString(t)); err != nil {
			return err
		}
	}

	if !bootNoExample {
		v, err := addr.TryNewVirtAddr(bootExamplePage)
		if err != nil {
			return err
		}
		if err := k.CreateExampleMapping(addr.PageContaining(v)); err != nil {
			return err
		}
	}

	failed := 0
	for _, r := range k.RunScenarios() {
		report.Scenarios = append(report.Scenarios, newScenarioReport(r))
		if !r.Passed() {
			failed++
		}
	}
	if failed == 0 {
		con.SetColor(console.NewColorCode(console.LightGreen, console.Black))
		err = con.Println("It did not crash!")
	} else {
		con.SetColor(console.NewColorCode(console.LightRed, console.Black))
		err = con.Printf("%d self checks failed\n", failed)
	}
	if err != nil {
		return err
	}

	report.FramesUsed, _ = k.FrameStats()
	report.Screen, err = screenRows(con)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("%s\n", headerStyle.Render(fmt.Sprintf("Booted with %s heap, %d frames used", report.Strategy, report.FramesUsed)))
	screen := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(borderColor).
		Width(console.BufferWidth).
		Render(strings.Join(report.Screen, "\n"))
	printInfo("%s\n", screen)
	if failed > 0 {
		return fmt.Errorf("%d self checks failed", failed)
	}
	return nil
}

// screenRows returns the visible text, dropping blank rows above the
// first written one.
func screenRows(con *console.Writer) ([]string, error) {
	rows := make([]string, 0, console.BufferHeight)
	for i := range console.BufferHeight {
		row, err := con.Row(i)
		if err != nil {
			return nil, err
		}
		if row == "" && len(rows) == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func physString(t kernel.Translation) string {
	if !t.OK {
		return "unmapped"
	}
	return fmt.Sprintf("%#x", t.Phys.Uint64())
}
