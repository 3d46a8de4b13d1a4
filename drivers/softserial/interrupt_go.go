//go:build !tinygo

package softserial

// noInterrupts is used on regular Go, where there is nothing to mask.
type noInterrupts struct{}

func (noInterrupts) Disable() uintptr { return 0 }
func (noInterrupts) Restore(uintptr)  {}

func defaultInterrupts() Interrupts { return noInterrupts{} }
