package softserial

import (
	"context"
	"testing"
	"time"

	"softserial-go/drivers/softserial"
	"softserial-go/drivers/softserial/sim"
	"softserial-go/errcode"
	"softserial-go/types"
	"softserial-go/x/shmring"
)

func newLoopPort(t *testing.T) *softserial.Serial {
	t.Helper()
	b := sim.NewBoard(sim.NewClock(0), 8)
	if err := b.Connect(4, 5); err != nil {
		t.Fatal(err)
	}
	s := softserial.New(b, b.Clock(), 4, 5, softserial.WithInterrupts(b.Interrupts()))
	s.Begin(115200)
	return s
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestSessionRoundTrip(t *testing.T) {
	port := newLoopPort(t)
	d, err := New(port, Params{ID: "ss0", Baud: 115200, PollEvery: time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	rep, err := d.Open(types.SerialSessionOpen{RXSize: 32, TXSize: 32})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rx := shmring.Get(shmring.Handle(rep.RXHandle))
	tx := shmring.Get(shmring.Handle(rep.TXHandle))
	if rx == nil || tx == nil {
		t.Fatalf("handles not registered: %+v", rep)
	}
	if rep.TS <= 0 {
		t.Fatalf("ts_ms=%d not stamped", rep.TS)
	}
	if rx.Cap() != 32 || tx.Cap() != 32 {
		t.Fatalf("cap rx=%d tx=%d want=32", rx.Cap(), tx.Cap())
	}

	tx.Write([]byte("hello"))
	if !waitFor(t, time.Second, func() bool { return rx.Available() == 5 }) {
		t.Fatalf("rx available=%d want=5", rx.Available())
	}
	buf := make([]byte, 8)
	n, _ := rx.Read(buf)
	if string(buf[:n]) != "hello" {
		t.Fatalf("got=%q want=hello", buf[:n])
	}
}

func TestSessionConflictAndReopen(t *testing.T) {
	port := newLoopPort(t)
	d, _ := New(port, Params{ID: "ss0"})
	defer d.Close()

	first, err := d.Open(types.SerialSessionOpen{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := d.Open(types.SerialSessionOpen{}); errcode.Of(err) != errcode.Conflict {
		t.Fatalf("second open err=%v want=Conflict", err)
	}
	if err := d.CloseSession(); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if shmring.Get(shmring.Handle(first.RXHandle)) != nil {
		t.Fatalf("rx handle still registered")
	}
	if err := d.CloseSession(); err != nil {
		t.Fatalf("idle CloseSession: %v", err)
	}
	second, err := d.Open(types.SerialSessionOpen{RXSize: 1 << 20})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.SessionID != first.SessionID+1 {
		t.Fatalf("session id=%d want=%d", second.SessionID, first.SessionID+1)
	}
	if got := shmring.Get(shmring.Handle(second.RXHandle)).Cap(); got != maxRingSize {
		t.Fatalf("rx cap=%d want=%d", got, maxRingSize)
	}
}

func TestSessionRejectsBadInput(t *testing.T) {
	if _, err := New(nil, Params{ID: "x"}); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("nil port err=%v", err)
	}
	d, _ := New(newLoopPort(t), Params{ID: "x"})
	if _, err := d.Open(types.SerialSessionOpen{RXSize: -1}); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("negative size err=%v", err)
	}
	if got := d.Info(); got.ID != "x" {
		t.Fatalf("info=%+v", got)
	}
}

func TestSessionFeedsLineWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, _ := New(newLoopPort(t), Params{ID: "ss0", PollEvery: time.Millisecond})
	defer d.Close()
	rep, _ := d.Open(types.SerialSessionOpen{})

	w := NewWorker(8)
	stop, err := w.Register(ctx, ReaderCfg{
		DevID:     "ss0",
		Src:       shmring.Get(shmring.Handle(rep.RXHandle)),
		Mode:      ModeLines,
		PollEvery: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer stop()

	shmring.Get(shmring.Handle(rep.TXHandle)).Write([]byte("ping\r\n"))
	select {
	case ev := <-w.Events():
		if ev.DevID != "ss0" || ev.Dir != DirRX || string(ev.Data) != "ping" {
			t.Fatalf("event=%+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event")
	}
}
