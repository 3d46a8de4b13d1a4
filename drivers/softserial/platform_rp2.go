//go:build rp2040 || rp2350

package softserial

import "machine"

// DefaultPinFactory maps pin numbers to Pico / Pico 2 GP numbering.
func DefaultPinFactory() PinFactory { return rp2PinFactory{} }

// DefaultClock counts the 1 MHz system timer. Bit periods are whole
// microseconds, so rates above 38400 lose accuracy on this clock.
func DefaultClock() Clock { return timerClock{} }

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (Pin, bool) {
	// GP0..GP28 only.
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n)}, true
}

type rp2Pin struct {
	p machine.Pin
}

func (r *rp2Pin) ConfigureInput(pull Pull) error {
	var mode machine.PinMode
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Set(initial)
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }

func (r *rp2Pin) SetIRQ(edge Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e Edge) machine.PinChange {
	switch e {
	case EdgeRising:
		return machine.PinRising
	case EdgeFalling:
		return machine.PinFalling
	case EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

type timerClock struct{}

func (timerClock) Cycles() uint32    { return timerRaw() }
func (timerClock) Frequency() uint32 { return 1_000_000 }

func (timerClock) WaitUntil(deadline uint32) {
	for !reached(timerRaw(), deadline) {
	}
}
