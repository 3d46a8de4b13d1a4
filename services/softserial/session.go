// Package softserial runs software serial ports as services: a session moves
// bytes between a port and a pair of registered rings, and a worker frames
// received bytes into events.
package softserial

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"

	"softserial-go/errcode"
	"softserial-go/types"
	"softserial-go/x/mathx"
	"softserial-go/x/shmring"
	"softserial-go/x/timex"
)

// Port is the byte stream a session drives. *softserial.Serial satisfies it;
// Read must not block and Readable must be signalled after new bytes arrive.
type Port interface {
	io.Reader
	io.Writer
	Readable() <-chan struct{}
}

// ---- Parameters ----

type Params struct {
	ID     string
	Baud   uint32
	RXSize int // default 256 if zero in Open
	TXSize int // default 256 if zero in Open
	// PollEvery bounds how long a received byte can sit undelivered when no
	// further edge arrives. Default 2ms.
	PollEvery time.Duration
}

const (
	defaultRingSize = 256
	maxRingSize     = 4096
	chunk           = 64
)

// ---- Device ----

type Device struct {
	port   Port
	params Params

	mu    sync.Mutex
	sess  *session
	snCtr atomic.Uint32
}

type session struct {
	id uint32

	// Rings (SPSC); handles are exported to clients.
	rxHandle shmring.Handle
	rxRing   *shmring.Ring
	txHandle shmring.Handle
	txRing   *shmring.Ring

	// Single worker (reactor) for the port.
	cancel context.CancelFunc
	done   chan struct{}
}

func New(port Port, p Params) (*Device, error) {
	if port == nil || p.ID == "" {
		return nil, errcode.InvalidParams
	}
	if p.PollEvery <= 0 {
		p.PollEvery = 2 * time.Millisecond
	}
	return &Device{port: port, params: p}, nil
}

func (d *Device) ID() string { return d.params.ID }

func (d *Device) Info() types.SerialInfo {
	return types.SerialInfo{ID: d.params.ID, Baud: d.params.Baud}
}

// ---- Sessions ----

// Open starts a session. Only one session may be open at a time.
func (d *Device) Open(req types.SerialSessionOpen) (types.SerialSessionOpened, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess != nil {
		return types.SerialSessionOpened{}, errcode.Conflict
	}
	if req.RXSize < 0 || req.TXSize < 0 {
		return types.SerialSessionOpened{}, errcode.InvalidParams
	}
	rxSize := coalesce(req.RXSize, d.params.RXSize)
	txSize := coalesce(req.TXSize, d.params.TXSize)

	// Drop anything that arrived before the session existed.
	tmp := make([]byte, chunk)
	for {
		if n, _ := d.port.Read(tmp); n == 0 {
			break
		}
	}

	s := d.startSession(rxSize, txSize)
	return types.SerialSessionOpened{
		SessionID: s.id,
		RXHandle:  uint32(s.rxHandle),
		TXHandle:  uint32(s.txHandle),
		TS:        timex.NowMs(),
	}, nil
}

// CloseSession stops the reactor and drops the ring handles. Closing with no
// session open is not an error.
func (d *Device) CloseSession() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopSession()
	return nil
}

// Close ends any session.
func (d *Device) Close() error { return d.CloseSession() }

func (d *Device) startSession(rxSize, txSize int) *session {
	rxh, rxr := shmring.NewRegistered(rxSize)
	txh, txr := shmring.NewRegistered(txSize)

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:       d.snCtr.Add(1),
		rxHandle: rxh,
		rxRing:   rxr,
		txHandle: txh,
		txRing:   txr,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	d.sess = s

	go d.reactor(ctx, s)
	return s
}

func (d *Device) stopSession() {
	s := d.sess
	if s == nil {
		return
	}
	s.cancel()
	<-s.done

	shmring.Close(s.rxHandle)
	shmring.Close(s.txHandle)
	d.sess = nil
}

// ---- Reactor (single goroutine) ----

func (d *Device) reactor(ctx context.Context, s *session) {
	defer close(s.done)

	u := d.port
	rxR := s.rxRing // port -> app
	txR := s.txRing // app  -> port
	buf := make([]byte, chunk)

	tick := time.NewTicker(d.params.PollEvery)
	defer tick.Stop()

	for {
		made := false

		// port -> rxRing, never reading more than fits.
		for {
			space := rxR.Space()
			if space == 0 {
				break
			}
			n, _ := u.Read(buf[:mathx.Min(space, len(buf))])
			if n == 0 {
				break
			}
			rxR.WriteFrom(buf[:n])
			made = true
		}

		// txRing -> port. Writes on a software port busy-wait, so hand over
		// one chunk and re-check reception in between.
		if n := txR.ReadInto(buf); n > 0 {
			_, _ = u.Write(buf[:n])
			made = true
		}

		if made {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-u.Readable():
		case <-rxR.Writable():
		case <-txR.Readable():
		case <-tick.C:
		}
	}
}

// ---- Helpers ----

func coalesce(v, d int) int {
	if v <= 0 {
		v = d
	}
	if v <= 0 {
		v = defaultRingSize
	}
	return mathx.Clamp(v, 2, maxRingSize)
}
