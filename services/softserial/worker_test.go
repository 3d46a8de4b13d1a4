package softserial

import (
	"context"
	"testing"
	"time"

	"softserial-go/x/shmring"
)

func recvEvent(ch <-chan Event, d time.Duration) (Event, bool) {
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(d):
		return Event{}, false
	}
}

func TestWorkerBytesMode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := shmring.New(64)
	w := NewWorker(8)
	stop, err := w.Register(ctx, ReaderCfg{DevID: "u1", Src: src, Mode: ModeBytes, MaxFrame: 16})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer stop()

	src.Write([]byte("abc"))
	ev, ok := recvEvent(w.Events(), time.Second)
	if !ok {
		t.Fatalf("timeout waiting for rx")
	}
	if ev.DevID != "u1" || ev.Dir != DirRX || string(ev.Data) != "abc" || ev.TS.IsZero() {
		t.Fatalf("event=%+v", ev)
	}

	// Larger than MaxFrame: split into frames of at most 16.
	src.Write([]byte("0123456789abcdefXYZ"))
	var got []byte
	for len(got) < 19 {
		ev, ok := recvEvent(w.Events(), time.Second)
		if !ok {
			t.Fatalf("timeout after %q", got)
		}
		if len(ev.Data) > 16 {
			t.Fatalf("frame len=%d want<=16", len(ev.Data))
		}
		got = append(got, ev.Data...)
	}
	if string(got) != "0123456789abcdefXYZ" {
		t.Fatalf("got=%q", got)
	}
}

func TestWorkerLinesModeAndIdleFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := shmring.New(64)
	w := NewWorker(8)
	stop, _ := w.Register(ctx, ReaderCfg{DevID: "u1", Src: src, Mode: ModeLines, IdleFlush: 20 * time.Millisecond})
	defer stop()

	src.Write([]byte("ab\r\ncd\n"))
	for _, want := range []string{"ab", "cd"} {
		ev, ok := recvEvent(w.Events(), time.Second)
		if !ok || string(ev.Data) != want {
			t.Fatalf("got=%q,%v want=%q", ev.Data, ok, want)
		}
	}

	src.Write([]byte("xy"))
	ev, ok := recvEvent(w.Events(), time.Second)
	if !ok || string(ev.Data) != "xy" {
		t.Fatalf("idle flush got=%q,%v want=xy", ev.Data, ok)
	}
}

func TestWorkerEmitTX(t *testing.T) {
	w := NewWorker(1)
	data := []byte("out")
	w.EmitTX("u1", data)
	w.EmitTX("u1", data) // dropped, queue full
	data[0] = 'X'
	ev, ok := recvEvent(w.Events(), time.Second)
	if !ok || ev.Dir != DirTX || string(ev.Data) != "out" {
		t.Fatalf("event=%+v", ev)
	}
	if _, ok := recvEvent(w.Events(), 10*time.Millisecond); ok {
		t.Fatalf("second event not dropped")
	}
}

func TestWorkerRequiresSource(t *testing.T) {
	if _, err := NewWorker(1).Register(context.Background(), ReaderCfg{}); err == nil {
		t.Fatalf("Register without source succeeded")
	}
}
