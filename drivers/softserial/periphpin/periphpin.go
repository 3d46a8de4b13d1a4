// Package periphpin binds the software serial driver to Linux GPIO through
// periph.io. Edge interrupts are emulated by a goroutine blocked in
// WaitForEdge, so reception latency is that of the kernel's edge delivery;
// expect low rates (a few thousand baud) to be the practical limit.
package periphpin

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"softserial-go/drivers/softserial"
)

var ErrNoEdges = errors.New("periphpin: pin does not support edge detection")

// Lookup resolves a pin number to a periph pin, or nil.
type Lookup func(n int) gpio.PinIO

// Registry looks pins up by number in gpioreg. The host drivers must have
// been initialised (host.Init) beforehand.
func Registry(n int) gpio.PinIO { return gpioreg.ByName(strconv.Itoa(n)) }

// Factory implements softserial.PinFactory.
type Factory struct {
	lookup Lookup

	mu   sync.Mutex
	pins map[int]*Pin
}

func NewFactory(lookup Lookup) *Factory {
	if lookup == nil {
		lookup = Registry
	}
	return &Factory{lookup: lookup, pins: make(map[int]*Pin)}
}

func (f *Factory) ByNumber(n int) (softserial.Pin, bool) {
	if n < 0 {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pins[n]; ok {
		return p, true
	}
	io := f.lookup(n)
	if io == nil {
		return nil, false
	}
	p := &Pin{io: io}
	f.pins[n] = p
	return p, true
}

// Pin adapts a gpio.PinIO.
type Pin struct {
	io   gpio.PinIO
	pull gpio.Pull

	mu   sync.Mutex
	stop *atomic.Bool
	done chan struct{}
}

func toPull(p softserial.Pull) gpio.Pull {
	switch p {
	case softserial.PullUp:
		return gpio.PullUp
	case softserial.PullDown:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

func toEdge(e softserial.Edge) gpio.Edge {
	switch e {
	case softserial.EdgeRising:
		return gpio.RisingEdge
	case softserial.EdgeFalling:
		return gpio.FallingEdge
	case softserial.EdgeBoth:
		return gpio.BothEdges
	default:
		return gpio.NoEdge
	}
}

func (p *Pin) ConfigureInput(pull softserial.Pull) error {
	p.pull = toPull(pull)
	return p.io.In(p.pull, gpio.NoEdge)
}

func (p *Pin) ConfigureOutput(initial bool) error {
	p.ClearIRQ()
	return p.io.Out(gpio.Level(initial))
}

func (p *Pin) Set(level bool) { _ = p.io.Out(gpio.Level(level)) }
func (p *Pin) Get() bool      { return bool(p.io.Read()) }

// pollEvery bounds how long ClearIRQ waits for the watcher to notice.
const pollEvery = 50 * time.Millisecond

// SetIRQ re-arms the pin for edge detection and starts a watcher goroutine
// calling handler for each edge reported by the kernel.
func (p *Pin) SetIRQ(edge softserial.Edge, handler func()) error {
	p.ClearIRQ()
	if err := p.io.In(p.pull, toEdge(edge)); err != nil {
		return errors.Join(ErrNoEdges, err)
	}
	stop := atomic.NewBool(false)
	done := make(chan struct{})
	p.mu.Lock()
	p.stop, p.done = stop, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		for !stop.Load() {
			if p.io.WaitForEdge(pollEvery) && !stop.Load() {
				handler()
			}
		}
	}()
	return nil
}

// ClearIRQ stops the watcher and waits for it to exit.
func (p *Pin) ClearIRQ() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop.Store(true)
	<-done
	return p.io.In(p.pull, gpio.NoEdge)
}

// Clock is a nanosecond cycle counter on the monotonic clock.
type Clock struct {
	epoch time.Time
}

func NewClock() *Clock { return &Clock{epoch: time.Now()} }

func (c *Clock) Cycles() uint32    { return uint32(time.Since(c.epoch).Nanoseconds()) }
func (c *Clock) Frequency() uint32 { return 1_000_000_000 }

// WaitUntil sleeps through most of the wait and spins the remainder.
func (c *Clock) WaitUntil(deadline uint32) {
	for {
		left := int32(deadline - c.Cycles())
		if left <= 0 {
			return
		}
		if left > int32(200*time.Microsecond) {
			time.Sleep(time.Duration(left) - 100*time.Microsecond)
		}
	}
}

var (
	_ softserial.PinFactory = (*Factory)(nil)
	_ softserial.IRQPin     = (*Pin)(nil)
	_ softserial.Clock      = (*Clock)(nil)
)
