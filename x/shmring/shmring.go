// Package shmring provides a bounded single-producer, single-consumer byte ring.
//
// The producer may run in interrupt context: Put and WriteFrom never block and
// never allocate. Indices are published with atomic stores so the consumer
// observes the data before it observes the index that covers it.
package shmring

import (
	"errors"

	"go.uber.org/atomic"
)

// ErrFull is returned by Write when only part of the input fit.
var ErrFull = errors.New("shmring: ring full")

// Ring is a single-producer, single-consumer byte ring of fixed capacity.
//
// Indices run over [0, 2*capacity) so a full ring (wr-rd == capacity) is
// distinguishable from an empty one without reserving a slot, and any
// capacity >= 1 is allowed.
type Ring struct {
	buf  []byte
	wrap uint32        // 2 * capacity
	rd   atomic.Uint32 // consumer index
	wr   atomic.Uint32 // producer index

	overflow atomic.Bool

	readable chan struct{} // 0->>0 available edge
	writable chan struct{} // full->not full edge
}

// New returns an empty ring holding up to size bytes.
func New(size int) *Ring {
	if size < 1 {
		panic("shmring: size must be >= 1")
	}
	return &Ring{
		buf:      make([]byte, size),
		wrap:     uint32(2 * size),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) used(rd, wr uint32) uint32 {
	return (wr + r.wrap - rd) % r.wrap
}

func (r *Ring) advance(i, n uint32) uint32 { return (i + n) % r.wrap }

func (r *Ring) slot(i uint32) uint32 {
	if i >= r.size() {
		return i - r.size()
	}
	return i
}

// Cap returns the capacity in bytes.
func (r *Ring) Cap() int { return len(r.buf) }

// Available returns the number of bytes ready for the consumer.
func (r *Ring) Available() int {
	return int(r.used(r.rd.Load(), r.wr.Load()))
}

// Space returns the number of bytes the producer can store.
func (r *Ring) Space() int {
	return int(r.size() - r.used(r.rd.Load(), r.wr.Load()))
}

// ---- Producer side ----

// Put stores one byte. If the ring is full the byte is dropped, the overflow
// flag is raised and Put reports false.
func (r *Ring) Put(b byte) bool {
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := r.used(rd, wr)
	if before == r.size() {
		r.overflow.Store(true)
		return false
	}
	r.buf[r.slot(wr)] = b
	r.wr.Store(r.advance(wr, 1)) // release
	if before == 0 {
		r.signal(r.readable)
	}
	return true
}

// WriteFrom copies as much of src as fits and returns the count. A short
// write is not an overflow; the caller still owns the remainder.
func (r *Ring) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := r.used(rd, wr)
	space := int(r.size() - before)
	if space <= 0 {
		return 0
	}
	if len(src) < space {
		space = len(src)
	}
	n = space

	idx := r.slot(wr)
	first := int(r.size() - idx)
	if first > n {
		first = n
	}
	copy(r.buf[idx:idx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(r.advance(wr, uint32(n))) // release

	if before == 0 {
		r.signal(r.readable)
	}
	return n
}

// Write implements io.Writer over WriteFrom. It never blocks; a short write
// reports ErrFull.
func (r *Ring) Write(p []byte) (int, error) {
	n := r.WriteFrom(p)
	if n < len(p) {
		return n, ErrFull
	}
	return n, nil
}

// ---- Consumer side ----

// Peek returns the oldest byte without consuming it.
func (r *Ring) Peek() (byte, bool) {
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	if rd == wr {
		return 0, false
	}
	return r.buf[r.slot(rd)], true
}

// Get removes and returns the oldest byte.
func (r *Ring) Get() (byte, bool) {
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	before := r.used(rd, wr)
	if before == 0 {
		return 0, false
	}
	b := r.buf[r.slot(rd)]
	r.rd.Store(r.advance(rd, 1)) // release
	if before == r.size() {
		r.signal(r.writable)
	}
	return b, true
}

// ReadInto copies up to len(dst) bytes out of the ring.
func (r *Ring) ReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	before := r.used(rd, wr)
	avail := int(before)
	if avail <= 0 {
		return 0
	}
	if len(dst) < avail {
		avail = len(dst)
	}
	n = avail

	idx := r.slot(rd)
	first := int(r.size() - idx)
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[idx:idx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(r.advance(rd, uint32(n))) // release

	if before == r.size() {
		r.signal(r.writable)
	}
	return n
}

// Read implements io.Reader over ReadInto. It never blocks and returns 0, nil
// when the ring is empty.
func (r *Ring) Read(p []byte) (int, error) { return r.ReadInto(p), nil }

// Discard drops everything currently readable. Only the consumer index moves,
// so it is safe against a concurrent producer.
func (r *Ring) Discard() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := r.used(rd, wr)
	r.rd.Store(wr)
	if n == r.size() {
		r.signal(r.writable)
	}
	return int(n)
}

// Overflow reports whether a Put was dropped since the last call and clears
// the flag.
func (r *Ring) Overflow() bool { return r.overflow.Swap(false) }

// Watermarks returns the raw consumer and producer indices.
func (r *Ring) Watermarks() (rd, wr uint32) {
	return r.rd.Load(), r.wr.Load()
}

func (r *Ring) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (r *Ring) Readable() <-chan struct{} { return r.readable }
func (r *Ring) Writable() <-chan struct{} { return r.writable }
