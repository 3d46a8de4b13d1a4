//go:build tinygo

package softserial

import "runtime/interrupt"

type cpuInterrupts struct{}

// Disable disables interrupts and returns the previous state.
func (cpuInterrupts) Disable() uintptr { return uintptr(interrupt.Disable()) }

// Restore restores the interrupt state.
func (cpuInterrupts) Restore(state uintptr) { interrupt.Restore(interrupt.State(state)) }

func defaultInterrupts() Interrupts { return cpuInterrupts{} }
