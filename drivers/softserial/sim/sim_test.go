package sim

import (
	"testing"

	"softserial-go/drivers/softserial"
)

func TestClockWaitNeverGoesBack(t *testing.T) {
	c := NewClock(0)
	if c.Frequency() != DefaultFrequency {
		t.Fatalf("freq=%d want=%d", c.Frequency(), DefaultFrequency)
	}
	c.WaitUntil(100)
	c.WaitUntil(50)
	if got := c.Cycles(); got != 100 {
		t.Fatalf("cycles=%d want=100", got)
	}
	c.Advance(^uint32(0))
	if got := c.Cycles(); got != 99 {
		t.Fatalf("cycles after wrap=%d want=99", got)
	}
}

func TestNetLevelAndEdges(t *testing.T) {
	b := NewBoard(NewClock(1000), 4)
	if err := b.Connect(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.Connect(0, 9); err != ErrNoPin {
		t.Fatalf("err=%v want=ErrNoPin", err)
	}
	out, _ := b.Pin(0)
	in, _ := b.Pin(1)
	in.ConfigureInput(softserial.PullUp)
	if !in.Get() {
		t.Fatalf("pull-up not applied")
	}

	var falls, both int
	in.SetIRQ(softserial.EdgeFalling, func() { falls++ })
	out.ConfigureOutput(true)
	out.Set(false)
	out.Set(true)
	out.Set(true)
	if falls != 1 {
		t.Fatalf("falls=%d want=1", falls)
	}

	in.SetIRQ(softserial.EdgeBoth, func() { both++ })
	out.Set(false)
	out.Set(true)
	if both != 2 {
		t.Fatalf("both=%d want=2", both)
	}
	in.ClearIRQ()
	out.Set(false)
	if both != 2 || in.HasIRQ() {
		t.Fatalf("handler ran after ClearIRQ")
	}
}

func TestWiredAnd(t *testing.T) {
	b := NewBoard(NewClock(0), 3)
	b.Connect(0, 1, 2)
	p0, _ := b.Pin(0)
	p1, _ := b.Pin(1)
	p2, _ := b.Pin(2)
	p2.ConfigureInput(softserial.PullUp)
	p0.ConfigureOutput(true)
	p1.ConfigureOutput(false)
	if p2.Get() {
		t.Fatalf("low driver should win")
	}
	p1.ConfigureInput(softserial.PullNone)
	if !p2.Get() {
		t.Fatalf("high driver should show once the low one releases")
	}
}

func TestControllerLatchesWhileMasked(t *testing.T) {
	b := NewBoard(NewClock(0), 2)
	b.Connect(0, 1)
	out, _ := b.Pin(0)
	in, _ := b.Pin(1)
	var seen []uint32
	in.SetIRQ(softserial.EdgeBoth, func() { seen = append(seen, b.Clock().Cycles()) })
	out.ConfigureOutput(false)

	outer := b.Interrupts().Disable()
	inner := b.Interrupts().Disable()
	out.Set(true)
	b.Clock().Advance(10)
	out.Set(false)
	b.Interrupts().Restore(inner)
	if len(seen) != 0 {
		t.Fatalf("delivered while still masked: %v", seen)
	}
	b.Interrupts().Restore(outer)
	if len(seen) != 2 || b.Interrupts().Latched() != 2 {
		t.Fatalf("seen=%v latched=%d", seen, b.Interrupts().Latched())
	}
	if seen[0] != 10 {
		t.Fatalf("latched edge stamped %d want=10 (delivery time)", seen[0])
	}
}

func TestTraceRecordsTransitions(t *testing.T) {
	b := NewBoard(NewClock(0), 1)
	p, _ := b.Pin(0)
	p.ConfigureOutput(true)
	b.Clock().Advance(5)
	p.Set(false)
	tr := b.Trace(0)
	if len(tr) != 2 || tr[1] != (Transition{At: 5, Level: false}) {
		t.Fatalf("trace=%v", tr)
	}
	b.ResetTrace(0)
	if len(b.Trace(0)) != 0 {
		t.Fatalf("trace not reset")
	}
}
