package softserial

import (
	"context"
	"errors"
	"io"
	"time"

	"tinygo.org/x/drivers"

	"softserial-go/x/timex"
)

// NoData is returned by Peek when nothing is buffered.
const NoData = -1

var (
	// ErrNoData is returned by ReadByte when the receive ring is empty.
	ErrNoData = errors.New("softserial: no data")
	// ErrTxDisabled is returned by writes when the transmit pin did not
	// resolve at Begin, or after Close.
	ErrTxDisabled = errors.New("softserial: transmit pin not valid")
)

var (
	_ drivers.UART    = (*Serial)(nil)
	_ io.ByteReader   = (*Serial)(nil)
	_ io.ByteWriter   = (*Serial)(nil)
	_ io.Closer       = (*Serial)(nil)
	_ io.StringWriter = (*Serial)(nil)
)

// Available returns the number of bytes ready to read.
func (s *Serial) Available() int {
	s.Poll()
	return s.buf.Available()
}

// Buffered is Available under the tinygo drivers name.
func (s *Serial) Buffered() int { return s.Available() }

// Peek returns the next byte without consuming it, or NoData.
func (s *Serial) Peek() int {
	s.Poll()
	b, ok := s.buf.Peek()
	if !ok {
		return NoData
	}
	return int(b)
}

// ReadByte consumes the next byte.
func (s *Serial) ReadByte() (byte, error) {
	s.Poll()
	b, ok := s.buf.Get()
	if !ok {
		return 0, ErrNoData
	}
	return b, nil
}

// Read copies buffered bytes into p. It does not wait: with nothing buffered
// it returns 0, nil.
func (s *Serial) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	s.Poll()
	return s.buf.ReadInto(p), nil
}

// RecvSomeContext waits until at least one byte is available or ctx is done.
// Between wake-ups the line is polled once per frame time so a trailing byte
// is completed without a further edge.
func (s *Serial) RecvSomeContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	frame := timex.FrameTime(s.baud, 10, 1)
	if frame < time.Millisecond {
		frame = time.Millisecond
	}
	t := time.NewTimer(frame)
	defer t.Stop()
	for {
		if n, _ := s.Read(p); n > 0 {
			return n, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-s.readable:
		case <-t.C:
			t.Reset(frame)
		}
	}
}

// Overflow reports whether a received byte was dropped since the last call,
// and clears the condition.
func (s *Serial) Overflow() bool { return s.buf.Overflow() }

// Flush discards unread bytes. Configuration and listening state are kept.
func (s *Serial) Flush() { s.buf.Discard() }
