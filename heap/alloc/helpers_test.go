package alloc

import (
	"testing"

	"github.com/joshuapare/kmemcore/internal/testutil"
	"github.com/joshuapare/kmemcore/mem/addr"
)

const (
	testHeapStart = addr.VirtAddr(0x_4444_4444_0000)
	testHeapSize  = 100 * 1024
)

func newTestMemory(t testing.TB) *testutil.SliceMemory {
	t.Helper()
	return testutil.NewSliceMemory(testHeapStart, testHeapSize)
}

func newStrategy(t testing.TB, kind Kind) (Strategy, *testutil.SliceMemory) {
	t.Helper()
	mem := newTestMemory(t)
	s, err := New(kind, mem, ConfigDefault)
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	s.Init(testHeapStart, testHeapSize)
	return s, mem
}

func word() Layout { return MustLayout(8, 8) }
