package clock

import (
	"testing"
	"time"
)

func TestMonotonicNeverDecreases(t *testing.T) {
	a := MonotonicMillis()
	if a == 0 {
		t.Fatal("monotonic clock unavailable")
	}
	time.Sleep(5 * time.Millisecond)
	b := MonotonicMillis()
	if b < a {
		t.Fatalf("monotonic clock went backwards: %d -> %d", a, b)
	}
	if b == a {
		// 5 ms should register even on coarse tick sources, but allow one
		// more read before declaring the clock frozen.
		time.Sleep(20 * time.Millisecond)
		if c := MonotonicMillis(); c <= a {
			t.Fatalf("monotonic clock frozen at %d", a)
		}
	}
}

func TestProcessCPUAdvancesUnderLoad(t *testing.T) {
	before := ProcessCPUMillis()
	deadline := time.Now().Add(200 * time.Millisecond)
	x := 0
	for time.Now().Before(deadline) {
		x++
	}
	_ = x
	after := ProcessCPUMillis()
	if after < before {
		t.Fatalf("cpu clock went backwards: %d -> %d", before, after)
	}
}

// Both readings are used from signal handlers and must not touch the heap.
func TestClockAllocationFree(t *testing.T) {
	if allocs := testing.AllocsPerRun(200, func() { MonotonicMillis() }); allocs != 0 {
		t.Fatalf("MonotonicMillis allocates %.1f objects per run, want 0", allocs)
	}
	if allocs := testing.AllocsPerRun(200, func() { ProcessCPUMillis() }); allocs != 0 {
		t.Fatalf("ProcessCPUMillis allocates %.1f objects per run, want 0", allocs)
	}
}
