package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/internal/logger"
	"github.com/joshuapare/kmemcore/kernel"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool

	// Machine flags
	strategy    = alloc.KindLinkedList
	ramSize     uint64
	heapStart   uint64
	heapSize    uint64
	hugeWindow  bool
	sizeClasses string
)

var rootCmd = &cobra.Command{
	Use:   "kmemctl",
	Short: "Boot and inspect a simulated x86-64 kernel memory core",
	Long: `kmemctl boots a simulated x86-64 machine the way the kernel does:
the bootloader maps all of physical memory, the kernel builds its frame
allocator and page mapper, maps the heap and hands it to an allocation
strategy. Each subcommand boots a fresh machine and reports on one part.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger.Init(logger.Options{Enabled: verbose, Level: level, JSON: jsonOut})
		applyColor()
	},
	SilenceUsage: true,
}

func init() {
	def := kernel.DefaultConfig()

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logs")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.PersistentFlags().VarP(&strategy, "strategy", "s", "Heap strategy: bump, linked-list, fixed-size")
	rootCmd.PersistentFlags().Uint64Var(&ramSize, "ram", def.RAMSize, "Physical memory in bytes")
	rootCmd.PersistentFlags().Uint64Var(&heapStart, "heap-start", def.HeapStart, "First virtual address of the heap")
	rootCmd.PersistentFlags().Uint64Var(&heapSize, "heap-size", def.HeapSize, "Heap size in bytes")
	rootCmd.PersistentFlags().BoolVar(&hugeWindow, "huge-window", false, "Map the physical memory window with 2 MiB pages")
	rootCmd.PersistentFlags().StringVar(&sizeClasses, "size-classes", def.SizeClasses.Name, "Size class preset for the fixed-size strategy")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// config builds the kernel configuration from the global flags.
func config() (kernel.Config, error) {
	c := kernel.DefaultConfig()
	c.RAMSize = ramSize
	c.HeapStart = heapStart
	c.HeapSize = heapSize
	c.HugeOffsetWindow = hugeWindow
	c.Strategy = strategy

	found := false
	for _, p := range alloc.SizeClassPresets {
		if p.Name == sizeClasses {
			c.SizeClasses = p
			found = true
		}
	}
	if !found {
		return c, fmt.Errorf("unknown size class preset %q", sizeClasses)
	}
	return c, nil
}

// bootKernel boots a machine from the global flags. The caller closes it.
func bootKernel(ctx context.Context) (*kernel.Kernel, error) {
	c, err := config()
	if err != nil {
		return nil, err
	}
	printVerbose("Booting: %s heap, %s RAM\n", c.Strategy, formatBytes(c.RAMSize))
	k, err := kernel.Boot(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("boot failed: %w", err)
	}
	return k, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
