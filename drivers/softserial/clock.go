package softserial

import "softserial-go/x/timex"

const (
	// MaxBaud is the highest rate the bit timing is designed for. Higher
	// rates are not rejected but will not decode reliably.
	MaxBaud = 115200
	// DefaultBaud is used when Begin is called with zero.
	DefaultBaud = 9600
)

// Clock is a free-running cycle counter with a busy-wait primitive. Cycles
// wraps at 2^32; the driver only ever compares differences.
type Clock interface {
	Cycles() uint32
	Frequency() uint32
	// WaitUntil spins until Cycles() has reached deadline.
	WaitUntil(deadline uint32)
}

// Interrupts masks and restores interrupts globally. Disable calls nest.
type Interrupts interface {
	Disable() uintptr
	Restore(state uintptr)
}

// bitPeriod is the bit length in cycles of clk for baud. Never zero.
func bitPeriod(clk Clock, baud uint32) uint32 {
	return timex.CyclesPerPeriod(clk.Frequency(), baud)
}

// reached reports whether now is at or past t, modulo counter wrap.
func reached(now, t uint32) bool { return int32(now-t) >= 0 }
