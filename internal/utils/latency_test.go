package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for _, d := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
	} {
		tracker.Observe(d)
	}

	if got := tracker.Count(); got != 5 {
		t.Fatalf("count = %d, want 5", got)
	}
	if p95 := tracker.Percentile(95); p95 < 40*time.Millisecond {
		t.Fatalf("p95 = %v, want >= 40ms", p95)
	}
	if p0 := tracker.Percentile(0); p0 != 10*time.Millisecond {
		t.Fatalf("p0 = %v, want 10ms", p0)
	}
	if p100 := tracker.Percentile(100); p100 != 50*time.Millisecond {
		t.Fatalf("p100 = %v, want 50ms", p100)
	}
}

func TestLatencyTrackerEvictsOldest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	if got := tracker.Count(); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}
	if p0 := tracker.Percentile(0); p0 != 8*time.Millisecond {
		t.Fatalf("oldest samples not evicted: p0 = %v, want 8ms", p0)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(4)
	if got := tracker.Percentile(95); got != 0 {
		t.Fatalf("empty tracker percentile = %v, want 0", got)
	}
}
