package sim

import (
	"errors"
	"sync"

	"softserial-go/drivers/softserial"
)

// ErrNoPin is returned for pin numbers outside the board.
var ErrNoPin = errors.New("sim: no such pin")

// Transition is one level change observed on a net.
type Transition struct {
	At    uint32
	Level bool
}

// Board holds pins 0..n-1. Each pin starts on a net of its own; Connect
// merges nets. A net's level is the wired-AND of its driving outputs, or its
// pull bias when nothing drives it (pull-up wins over pull-down).
type Board struct {
	mu    sync.Mutex
	clock *Clock
	irq   *Controller
	pins  []*Pin
}

// NewBoard returns a board with n pins on clk.
func NewBoard(clk *Clock, n int) *Board {
	b := &Board{clock: clk, irq: &Controller{}}
	for i := 0; i < n; i++ {
		p := &Pin{b: b, n: i}
		p.net = &net{pins: []*Pin{p}}
		b.pins = append(b.pins, p)
	}
	return b
}

func (b *Board) Clock() *Clock { return b.clock }

// Interrupts is the board's interrupt controller.
func (b *Board) Interrupts() *Controller { return b.irq }

// ByNumber implements softserial.PinFactory.
func (b *Board) ByNumber(n int) (softserial.Pin, bool) {
	p, err := b.Pin(n)
	if err != nil {
		return nil, false
	}
	return p, true
}

// Pin returns the concrete pin for direct inspection or driving.
func (b *Board) Pin(n int) (*Pin, error) {
	if n < 0 || n >= len(b.pins) {
		return nil, ErrNoPin
	}
	return b.pins[n], nil
}

// Connect wires pins together.
func (b *Board) Connect(pins ...int) error {
	for _, n := range pins {
		if n < 0 || n >= len(b.pins) {
			return ErrNoPin
		}
	}
	if len(pins) < 2 {
		return nil
	}
	b.mu.Lock()
	root := b.pins[pins[0]].net
	for _, n := range pins[1:] {
		other := b.pins[n].net
		if other == root {
			continue
		}
		for _, p := range other.pins {
			p.net = root
		}
		root.pins = append(root.pins, other.pins...)
	}
	fire := b.settle(root)
	b.mu.Unlock()
	b.fire(fire)
	return nil
}

// Trace returns the level changes seen on the net of pin n, oldest first.
func (b *Board) Trace(n int) []Transition {
	if n < 0 || n >= len(b.pins) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Transition(nil), b.pins[n].net.trace...)
}

// ResetTrace clears the recorded transitions of pin n's net.
func (b *Board) ResetTrace(n int) {
	if n < 0 || n >= len(b.pins) {
		return
	}
	b.mu.Lock()
	b.pins[n].net.trace = nil
	b.mu.Unlock()
}

type net struct {
	pins  []*Pin
	level bool
	trace []Transition
}

func (n *net) resolve() bool {
	driven, level := false, true
	pullUp := false
	for _, p := range n.pins {
		if p.output {
			driven = true
			level = level && p.drive
		} else if p.pull == softserial.PullUp {
			pullUp = true
		}
	}
	if driven {
		return level
	}
	return pullUp
}

// settle recomputes the level of n and returns the handlers to run. Callers
// hold b.mu and must run the handlers after releasing it.
func (b *Board) settle(n *net) []func() {
	lvl := n.resolve()
	if lvl == n.level {
		return nil
	}
	n.level = lvl
	n.trace = append(n.trace, Transition{At: b.clock.Cycles(), Level: lvl})
	var fire []func()
	for _, p := range n.pins {
		if p.output || p.handler == nil {
			continue
		}
		switch p.edge {
		case softserial.EdgeBoth:
		case softserial.EdgeRising:
			if !lvl {
				continue
			}
		case softserial.EdgeFalling:
			if lvl {
				continue
			}
		default:
			continue
		}
		fire = append(fire, p.handler)
	}
	return fire
}

func (b *Board) fire(hs []func()) {
	for _, h := range hs {
		b.irq.deliver(h)
	}
}

// Pin is a simulated GPIO. It implements softserial.IRQPin.
type Pin struct {
	b   *Board
	n   int
	net *net

	output  bool
	drive   bool
	pull    softserial.Pull
	edge    softserial.Edge
	handler func()
}

// Number returns the pin's index on its board.
func (p *Pin) Number() int { return p.n }

// ConfigureInput stops driving the pin and biases it with pull.
func (p *Pin) ConfigureInput(pull softserial.Pull) error {
	p.b.mu.Lock()
	p.output = false
	p.pull = pull
	fire := p.b.settle(p.net)
	p.b.mu.Unlock()
	p.b.fire(fire)
	return nil
}

// ConfigureOutput drives the pin at initial.
func (p *Pin) ConfigureOutput(initial bool) error {
	p.b.mu.Lock()
	p.output = true
	p.drive = initial
	fire := p.b.settle(p.net)
	p.b.mu.Unlock()
	p.b.fire(fire)
	return nil
}

// Set drives the pin. It has no effect on an input.
func (p *Pin) Set(level bool) {
	p.b.mu.Lock()
	if !p.output {
		p.b.mu.Unlock()
		return
	}
	p.drive = level
	fire := p.b.settle(p.net)
	p.b.mu.Unlock()
	p.b.fire(fire)
}

// Get returns the net level.
func (p *Pin) Get() bool {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	return p.net.level
}

// IsOutput reports the configured direction.
func (p *Pin) IsOutput() bool {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	return p.output
}

// SetIRQ attaches handler to the transitions of the pin's net that match
// edge. It replaces any earlier handler.
func (p *Pin) SetIRQ(edge softserial.Edge, handler func()) error {
	p.b.mu.Lock()
	p.edge, p.handler = edge, handler
	p.b.mu.Unlock()
	return nil
}

// ClearIRQ detaches the edge handler.
func (p *Pin) ClearIRQ() error {
	p.b.mu.Lock()
	p.edge, p.handler = softserial.EdgeNone, nil
	p.b.mu.Unlock()
	return nil
}

// HasIRQ reports whether an edge handler is attached.
func (p *Pin) HasIRQ() bool {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	return p.handler != nil
}

// PollOnly hides the edge interrupt capability of a pin factory, for
// exercising Poll-driven reception.
type PollOnly struct{ B *Board }

// ByNumber returns board pin n without its edge interrupt methods.
func (f PollOnly) ByNumber(n int) (softserial.Pin, bool) {
	p, err := f.B.Pin(n)
	if err != nil {
		return nil, false
	}
	return plainPin{p}, true
}

type plainPin struct{ p *Pin }

func (pp plainPin) ConfigureInput(pull softserial.Pull) error { return pp.p.ConfigureInput(pull) }
func (pp plainPin) ConfigureOutput(initial bool) error        { return pp.p.ConfigureOutput(initial) }
func (pp plainPin) Set(level bool)                            { pp.p.Set(level) }
func (pp plainPin) Get() bool                                 { return pp.p.Get() }

var (
	_ softserial.PinFactory = (*Board)(nil)
	_ softserial.IRQPin     = (*Pin)(nil)
	_ softserial.PinFactory = PollOnly{}
)
