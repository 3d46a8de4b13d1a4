// Package softserial emulates an 8N1 UART on two general purpose pins.
//
// Reception is edge driven: an interrupt on every transition of the receive
// pin timestamps the edge with the cycle counter, and the level that held
// between two edges is assigned to every bit cell whose midpoint fell in that
// interval. Completed bytes land in a fixed-capacity ring that a single
// reader drains:
//
//	s := softserial.New(pins, clock, 4, 5)
//	s.Begin(9600)
//	s.WriteByte('A')      // busy-waits for the whole frame
//	if s.Available() > 0 {
//		b, _ := s.ReadByte()
//	}
//
// Transmission busy-waits on the same clock, optionally with interrupts
// masked. Passing the same pin for receive and transmit selects one-wire
// (half-duplex) mode, where the line is turned around for each write or
// explicitly with EnableTx.
//
// Rates up to MaxBaud are supported, subject to the clock resolution and the
// interrupt latency of the platform.
package softserial

import (
	"go.uber.org/atomic"

	"softserial-go/x/shmring"
)

// DefaultBufferSize is the receive ring capacity unless WithBufferSize is used.
const DefaultBufferSize = 64

// Serial is one software UART instance. Its methods are not safe for
// concurrent use except that the receive interrupt (or Poll) may run
// alongside a single reader.
type Serial struct {
	pins  PinFactory
	clock Clock
	irq   Interrupts

	rxPin, txPin, txEnablePin int

	rx       Pin
	rxIRQ    IRQPin // nil when rx is serviced by Poll only
	tx       Pin
	txEnable Pin

	oneWire bool
	invert  bool
	intTx   bool

	rxValid       bool
	txValid       bool
	txEnableValid bool
	rxEnabled     bool
	txActive      bool // one-wire line currently driven

	baud      uint32
	bitCycles uint32

	buf *shmring.Ring

	// Receive assembly. Owned by whoever holds rxBusy.
	rxBusy  atomic.Bool
	rxBit   int8
	rxByte  uint8
	rxStart uint32
	rxLine  bool // last logical level seen, true = mark

	isr      func()
	handler  atomic.Pointer[notifierSlot]
	readable chan struct{}
}

// Option configures a Serial at construction.
type Option func(*Serial)

// WithInverseLogic swaps mark and space on both pins.
func WithInverseLogic(on bool) Option {
	return func(s *Serial) { s.invert = on }
}

// WithBufferSize sets the receive ring capacity in bytes (minimum 1).
func WithBufferSize(n int) Option {
	return func(s *Serial) {
		if n < 1 {
			n = 1
		}
		s.buf = shmring.New(n)
	}
}

// WithInterrupts overrides the platform interrupt masking.
func WithInterrupts(ic Interrupts) Option {
	return func(s *Serial) {
		if ic != nil {
			s.irq = ic
		}
	}
}

// New creates a driver for the given pins. Either pin may be UnusedPin; equal
// pins select one-wire mode. Nothing is touched until Begin.
func New(pins PinFactory, clk Clock, rxPin, txPin int, opts ...Option) *Serial {
	s := &Serial{
		pins:        pins,
		clock:       clk,
		irq:         defaultInterrupts(),
		rxPin:       rxPin,
		txPin:       txPin,
		txEnablePin: UnusedPin,
		oneWire:     rxPin == txPin && rxPin != UnusedPin,
		intTx:       true,
		rxBit:       rxIdle,
		rxLine:      true,
		readable:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	if s.buf == nil {
		s.buf = shmring.New(DefaultBufferSize)
	}
	s.isr = s.rxEdge
	return s
}

func (s *Serial) resolve(n int) (Pin, bool) {
	if n == UnusedPin || s.pins == nil {
		return nil, false
	}
	return s.pins.ByNumber(n)
}

// idlePull biases an undriven line towards mark.
func (s *Serial) idlePull() Pull {
	if s.invert {
		return PullDown
	}
	return PullUp
}

// Begin validates the pins, derives the bit period and starts listening if
// the receive pin is valid.
func (s *Serial) Begin(baud uint32) {
	if s.rxEnabled {
		s.EnableRx(false)
	}
	if baud == 0 {
		baud = DefaultBaud
	}
	s.baud = baud
	s.bitCycles = bitPeriod(s.clock, baud)

	s.rxValid, s.txValid = false, false
	s.rx, s.rxIRQ, s.tx = nil, nil, nil
	s.txActive = false

	if p, ok := s.resolve(s.rxPin); ok {
		if err := p.ConfigureInput(s.idlePull()); err == nil {
			s.rx = p
			s.rxIRQ, _ = p.(IRQPin)
			s.rxValid = true
		}
	}
	if s.oneWire {
		// The shared pin idles as an input; EnableTx turns it around.
		s.tx = s.rx
		s.txValid = s.rxValid
	} else if p, ok := s.resolve(s.txPin); ok {
		if err := p.ConfigureOutput(s.physical(true)); err == nil {
			s.tx = p
			s.txValid = true
		}
	}
	if s.txEnablePin != UnusedPin && !s.txEnableValid {
		s.SetTransmitEnablePin(s.txEnablePin)
	}
	s.EnableRx(true)
}

// BaudRate returns the rate passed to the last Begin.
func (s *Serial) BaudRate() uint32 { return s.baud }

// Valid reports whether either direction is usable.
func (s *Serial) Valid() bool { return s.rxValid || s.txValid }

// SetTransmitEnablePin assigns the driver-enable output of a half-duplex
// transceiver. It is held high for the duration of each byte. UnusedPin or an
// invalid pin disables the feature.
func (s *Serial) SetTransmitEnablePin(pin int) {
	s.txEnablePin = pin
	s.txEnable, s.txEnableValid = nil, false
	p, ok := s.resolve(pin)
	if !ok {
		return
	}
	if err := p.ConfigureOutput(false); err != nil {
		return
	}
	s.txEnable, s.txEnableValid = p, true
}

// EnableIntTx selects whether interrupts stay enabled while a byte is
// transmitted. With on=false the timing is exact but every interrupt,
// including the receive edge, is held off for the frame time.
func (s *Serial) EnableIntTx(on bool) { s.intTx = on }

// EnableRx attaches (on) or detaches the receive interrupt. Either way the
// partially assembled byte is discarded; buffered bytes are kept.
func (s *Serial) EnableRx(on bool) {
	if !s.rxValid {
		return
	}
	if on {
		if s.rxEnabled {
			return
		}
		s.resetRx()
		if s.rxIRQ != nil {
			if err := s.rxIRQ.SetIRQ(EdgeBoth, s.isr); err != nil {
				// Platform refused the interrupt; Poll still works.
				s.rxIRQ = nil
			}
		}
		s.rxEnabled = true
		return
	}
	if !s.rxEnabled {
		return
	}
	if s.rxIRQ != nil {
		_ = s.rxIRQ.ClearIRQ()
	}
	s.rxEnabled = false
	s.resetRx()
}

// EnableTx turns the shared line of a one-wire instance around: on drives it
// as an output at mark and stops reception, off releases it and resumes
// reception. It has no effect on two-pin instances.
func (s *Serial) EnableTx(on bool) {
	if !s.oneWire || !s.txValid {
		return
	}
	if on {
		s.EnableRx(false)
		_ = s.tx.ConfigureOutput(s.physical(true))
		s.txActive = true
		return
	}
	s.releaseLine()
	s.EnableRx(true)
}

// releaseLine returns a driven one-wire line to an input at idle bias.
func (s *Serial) releaseLine() {
	_ = s.rx.ConfigureInput(s.idlePull())
	s.txActive = false
}

// Listen starts reception. It always reports true.
func (s *Serial) Listen() bool { s.EnableRx(true); return true }

// StopListening stops reception. It always reports true.
func (s *Serial) StopListening() bool { s.EnableRx(false); return true }

// IsListening reports whether reception is enabled.
func (s *Serial) IsListening() bool { return s.rxEnabled }

// End stops reception.
func (s *Serial) End() { s.StopListening() }

// Close stops reception and releases every pin role. Buffered bytes remain
// readable. A later Begin brings the instance back.
func (s *Serial) Close() error {
	s.End()
	if s.txActive {
		s.releaseLine()
	}
	s.rxValid, s.txValid, s.txEnableValid = false, false, false
	s.rx, s.rxIRQ, s.tx, s.txEnable = nil, nil, nil, nil
	return nil
}

// physical maps a logical level (true = mark) to the pin level.
func (s *Serial) physical(mark bool) bool { return mark != s.invert }
