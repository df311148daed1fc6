package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/joshuapare/kmemcore/heap/alloc"
	"github.com/joshuapare/kmemcore/internal/testutil"
	"github.com/joshuapare/kmemcore/kernel"
)

// useFlags resets the global flags to a small machine running kind and
// restores them when the test ends.
func useFlags(t *testing.T, kind alloc.Kind) {
	t.Helper()
	saved := struct {
		verbose, quiet, jsonOut, noColor, hugeWindow bool
		strategy                                     alloc.Kind
		ramSize, heapStart, heapSize                 uint64
		sizeClasses                                  string
	}{verbose, quiet, jsonOut, noColor, hugeWindow, strategy, ramSize, heapStart, heapSize, sizeClasses}
	t.Cleanup(func() {
		verbose, quiet, jsonOut, noColor, hugeWindow = saved.verbose, saved.quiet, saved.jsonOut, saved.noColor, saved.hugeWindow
		strategy, ramSize, heapStart, heapSize, sizeClasses = saved.strategy, saved.ramSize, saved.heapStart, saved.heapSize, saved.sizeClasses
	})

	def := kernel.DefaultConfig()
	verbose, quiet, jsonOut, noColor, hugeWindow = false, false, false, true, false
	strategy = kind
	ramSize = testutil.SmallRAM
	heapStart = def.HeapStart
	heapSize = def.HeapSize
	sizeClasses = def.SizeClasses.Name
	applyColor()
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe.
	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return string(<-done), fnErr
}

// decodeJSON unmarshals output into v and fails the test if it is not JSON
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
