package timex

import (
	"testing"
	"time"
)

func TestCyclesPerPeriod(t *testing.T) {
	cases := []struct {
		clock, rate, want uint32
	}{
		{80_000_000, 9600, 8333},
		{80_000_000, 115200, 694},
		{1_000_000, 9600, 104},
		{1_000, 9600, 1}, // clock slower than the rate clamps to 1
		{1_000_000, 0, 1_000_000},
	}
	for _, c := range cases {
		if got := CyclesPerPeriod(c.clock, c.rate); got != c.want {
			t.Errorf("CyclesPerPeriod(%d, %d) = %d, want %d", c.clock, c.rate, got, c.want)
		}
	}
}

func TestFrameTime(t *testing.T) {
	// 10 bits at 10 kbaud is one millisecond per frame.
	if got := FrameTime(10_000, 10, 3); got != 3*time.Millisecond {
		t.Fatalf("FrameTime = %v, want 3ms", got)
	}
	if got := PeriodFromHz(0); got != 1_000_000_000 {
		t.Fatalf("PeriodFromHz(0) = %d", got)
	}
}
