package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kmemcore/heap/alloc"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
// Unset values fall back to the VCS stamp Go embeds in the binary.
var (
	version = "dev"
	commit  = ""
	date    = ""
)

type versionReport struct {
	Version    string   `json:"version"`
	Commit     string   `json:"commit"`
	Built      string   `json:"built"`
	Modified   bool     `json:"modified,omitempty"`
	GoVersion  string   `json:"go"`
	Strategies []string `json:"strategies"`
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	})
}

func buildVersion() versionReport {
	r := versionReport{Version: version, Commit: commit, Built: date, GoVersion: "unknown"}
	for _, k := range alloc.Kinds {
		r.Strategies = append(r.Strategies, k.String())
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return r
	}
	r.GoVersion = info.GoVersion
	if r.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		r.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if r.Commit == "" {
				r.Commit = s.Value
			}
		case "vcs.time":
			if r.Built == "" {
				r.Built = s.Value
			}
		case "vcs.modified":
			r.Modified = s.Value == "true"
		}
	}
	return r
}

func runVersion() error {
	r := buildVersion()
	if jsonOut {
		return printJSON(r)
	}
	rev, built := r.Commit, r.Built
	if rev == "" {
		rev = "none"
	}
	if r.Modified {
		rev += " (modified)"
	}
	if built == "" {
		built = "unknown"
	}
	printInfo("kmemctl %s\n", r.Version)
	printInfo("  commit: %s\n", rev)
	printInfo("  built: %s with %s\n", built, r.GoVersion)
	printInfo("  heap strategies: %v\n", r.Strategies)
	return nil
}
