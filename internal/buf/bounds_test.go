package buf

import (
	"math"
	"testing"
)

func TestAddU64(t *testing.T) {
	if sum, ok := AddU64(10, 5); !ok || sum != 15 {
		t.Fatalf("AddU64(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddU64(math.MaxUint64, 1); ok {
		t.Fatalf("expected overflow when adding to MaxUint64")
	}
	if _, ok := SubU64(1, 2); ok {
		t.Fatalf("expected borrow when subtracting past zero")
	}
	if _, ok := MulU64(1<<33, 1<<33); ok {
		t.Fatalf("expected overflow for 2^66")
	}
	if p, ok := MulU64(512, 4096); !ok || p != 2<<20 {
		t.Fatalf("MulU64(512,4096)=%d,%v want 2MiB,true", p, ok)
	}
}

func TestSliceAndHas(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if Has(data, 2, 4) {
		t.Fatalf("Has should be false for out-of-bounds range")
	}
	if !Has(data, 2, 1) {
		t.Fatalf("Has should be true for valid range")
	}
	if _, ok := Slice(data, math.MaxUint64, 2); ok {
		t.Fatalf("Slice should reject wrapping range")
	}
}
