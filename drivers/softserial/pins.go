package softserial

// UnusedPin marks a pin role that is not wired.
const UnusedPin = -1

// Pull selects the input bias.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// Pin is the digital I/O the driver needs from a platform.
type Pin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
}

// IRQPin extends Pin with edge interrupts. A receive pin that is not an
// IRQPin is serviced by Poll only.
type IRQPin interface {
	Pin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// PinFactory resolves pin numbers. The boolean result is the platform's
// validity predicate.
type PinFactory interface {
	ByNumber(n int) (Pin, bool)
}
