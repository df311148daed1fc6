package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/kernel"
)

func init() {
	rootCmd.AddCommand(newHeapTestCmd())
}

func newHeapTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heap-test",
		Short: "Run the heap self checks",
		Long: `The heap-test command boots a machine and runs the heap self checks:
a boxed value, a 1000 element vector, HeapSize/8 short-lived boxes with and
without a long-lived one, a reference-counted value, and the VGA identity
translation.

A bump heap cannot reuse memory while anything is live, so it is expected
to fail the long-lived check.

Example:
  kmemctl heap-test
  kmemctl heap-test --strategy bump
  kmemctl heap-test --strategy fixed-size --size-classes coarse --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeapTest(cmd.Context())
		},
	}
}

type scenarioReport struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

func newScenarioReport(r kernel.ScenarioResult) scenarioReport {
	s := scenarioReport{Name: r.Name, Passed: r.Passed(), Detail: r.Detail, Duration: r.Duration.String()}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

func runHeapTest(ctx context.Context) error {
	k, err := bootKernel(ctx)
	if err != nil {
		return err
	}
	defer k.Close()

	results := k.RunScenarios()
	reports := make([]scenarioReport, 0, len(results))
	failed := 0
	for _, r := range results {
		reports = append(reports, newScenarioReport(r))
		if !r.Passed() {
			failed++
		}
	}

	if jsonOut {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(reports))
		for _, r := range reports {
			note := r.Detail
			if !r.Passed {
				note = r.Error
			}
			rows = append(rows, []string{r.Name, status(r.Passed), note, r.Duration})
		}
		printInfo("%s\n", headerStyle.Render(fmt.Sprintf("Heap self checks (%s)", k.Heap.Kind())))
		printInfo("%s\n", renderTable([]string{"Check", "Result", "Detail", "Time"}, rows))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}
