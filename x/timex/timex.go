package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// CyclesPerPeriod returns how many ticks of a clock running at clockHz fit in
// one period of rateHz, truncated. The result is never zero; rateHz==0 is
// coerced to 1.
func CyclesPerPeriod(clockHz, rateHz uint32) uint32 {
	if rateHz == 0 {
		rateHz = 1
	}
	c := clockHz / rateHz
	if c == 0 {
		c = 1
	}
	return c
}

// FrameTime returns the wire time of n frames of bitsPerFrame bits at baud.
func FrameTime(baud uint32, bitsPerFrame, n int) time.Duration {
	return time.Duration(PeriodFromHz(baud)) * time.Duration(bitsPerFrame*n)
}
