package utils

import (
	"testing"
	"time"
)

func TestThrottleFirstWaitNeverBlocks(t *testing.T) {
	th := NewThrottle(time.Hour)

	start := time.Now()
	th.Wait()
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first Wait blocked for %v", elapsed)
	}
}

func TestThrottleEnforcesInterval(t *testing.T) {
	const interval = 30 * time.Millisecond
	th := NewThrottle(interval)

	th.Wait()
	start := time.Now()
	th.Wait()
	if elapsed := time.Since(start); elapsed < interval {
		t.Errorf("second Wait returned after %v; want at least %v", elapsed, interval)
	}
}

func TestThrottleZeroIntervalIsFree(t *testing.T) {
	th := NewThrottle(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		th.Wait()
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("100 zero-interval Waits took %v", elapsed)
	}
}

func TestStringSetTracksMembership(t *testing.T) {
	s := NewStringSet()

	if !s.Add("01/15/2025") {
		t.Error("first Add returned false")
	}
	if s.Add("01/15/2025") {
		t.Error("repeated Add returned true")
	}
	if !s.Contains("01/15/2025") || s.Contains("01/22/2025") {
		t.Error("membership reads off")
	}
	s.Add("01/22/2025")
	if s.Size() != 2 {
		t.Errorf("size = %d; want 2", s.Size())
	}
}
