package softserial

import (
	"context"
	"time"

	"softserial-go/errcode"
	"softserial-go/x/mathx"
	"softserial-go/x/timex"
)

// Direction of an Event.
const (
	DirRX = "rx"
	DirTX = "tx"
)

// Framing modes.
const (
	ModeBytes = "bytes"
	ModeLines = "lines"
)

type Event struct {
	DevID string
	Dir   string // DirRX | DirTX
	Data  []byte
	TS    time.Time
}

// Source is what a worker reads from: a Serial directly, or the rx ring of
// a session. Read must not block.
type Source interface {
	Read(p []byte) (int, error)
	Readable() <-chan struct{}
}

type ReaderCfg struct {
	DevID     string
	Src       Source
	Mode      string        // ModeBytes | ModeLines
	MaxFrame  int           // clamp 16..256
	IdleFlush time.Duration // clamp 0..2s (lines mode)
	// PollEvery re-reads the source without a wake-up, so a trailing byte
	// completed by polling is not stranded. Default 5ms.
	PollEvery time.Duration
}

type Worker struct {
	outQ chan Event
}

func NewWorker(outBuf int) *Worker {
	if outBuf <= 0 {
		outBuf = 64
	}
	return &Worker{outQ: make(chan Event, outBuf)}
}

func (w *Worker) Events() <-chan Event { return w.outQ }

func (w *Worker) emit(ev Event) {
	select {
	case w.outQ <- ev:
	default:
		// drop if consumer is slow
	}
}

// Register starts a reader goroutine for a source. Returns cancel.
func (w *Worker) Register(ctx context.Context, cfg ReaderCfg) (func(), error) {
	if cfg.Src == nil {
		return nil, errcode.InvalidParams
	}
	max := mathx.Clamp(cfg.MaxFrame, 16, 256)
	idle := mathx.Clamp(cfg.IdleFlush, 0, 2*time.Second)
	poll := cfg.PollEvery
	if poll <= 0 {
		poll = 5 * time.Millisecond
	}
	cctx, cancel := context.WithCancel(ctx)

	go func() {
		buf := make([]byte, max)
		var line []byte

		idleT := time.NewTimer(time.Hour)
		if !idleT.Stop() {
			timex.DrainTimer(idleT)
		}
		tick := time.NewTicker(poll)
		defer tick.Stop()

		flush := func(now time.Time) {
			if len(line) == 0 {
				return
			}
			payload := append([]byte(nil), line...)
			line = line[:0]
			w.emit(Event{DevID: cfg.DevID, Dir: DirRX, Data: payload, TS: now})
		}

		drain := func() {
			got := false
			defer func() {
				// Arm the idle flush only after fresh bytes left a partial line.
				if got && cfg.Mode == ModeLines && len(line) > 0 && idle > 0 {
					timex.ResetTimer(idleT, idle)
				}
			}()
			for {
				n, _ := cfg.Src.Read(buf)
				if n <= 0 {
					return
				}
				got = true
				now := time.Now()
				if cfg.Mode != ModeLines {
					// Raw chunk (binary-safe).
					w.emit(Event{DevID: cfg.DevID, Dir: DirRX, Data: append([]byte(nil), buf[:n]...), TS: now})
					continue
				}
				// Split on LF; CR is dropped; overlong lines are truncated.
				for _, b := range buf[:n] {
					switch b {
					case '\n':
						flush(now)
					case '\r':
					default:
						if len(line) < max {
							line = append(line, b)
						}
					}
				}
			}
		}

		for {
			select {
			case <-cctx.Done():
				return
			case <-cfg.Src.Readable():
				drain()
			case <-tick.C:
				drain()
			case <-idleT.C:
				flush(time.Now())
			}
		}
	}()

	return cancel, nil
}

// EmitTX publishes a TX echo event.
func (w *Worker) EmitTX(devID string, data []byte) {
	w.emit(Event{DevID: devID, Dir: DirTX, Data: append([]byte(nil), data...), TS: time.Now()})
}
