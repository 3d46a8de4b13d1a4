package softserial

const (
	rxIdle int8 = -1
	rxStop int8 = 8
)

// rxEdge is attached to both edges of the receive pin.
func (s *Serial) rxEdge() {
	now := s.clock.Cycles()
	for !s.rxBusy.CompareAndSwap(false, true) {
	}
	committed := s.sample(now, s.level())
	s.rxBusy.Store(false)
	if committed {
		s.notify()
	}
}

// Poll advances the receive state machine using the current line level. It
// completes a byte whose stop bit has elapsed without a further edge, and is
// the only receive path on pins without edge interrupts. Poll reports whether
// a byte was committed.
func (s *Serial) Poll() bool {
	if !s.rxEnabled {
		return false
	}
	state := s.irq.Disable()
	if !s.rxBusy.CompareAndSwap(false, true) {
		s.irq.Restore(state)
		return false
	}
	committed := s.sample(s.clock.Cycles(), s.level())
	s.rxBusy.Store(false)
	s.irq.Restore(state)
	if committed {
		s.notify()
	}
	return committed
}

// level reads the receive pin as a logical level, true = mark.
func (s *Serial) level() bool {
	return s.rx.Get() != s.invert
}

// sample folds an observation of the line at now into the assembly. A level
// change means the previous level held for every cell midpoint before now.
func (s *Serial) sample(now uint32, level bool) bool {
	if level == s.rxLine {
		return s.advance(now, level)
	}
	committed := s.advance(now, s.rxLine)
	s.rxLine = level
	if !level && s.rxBit == rxIdle {
		s.rxStart = now
		s.rxBit = 0
		s.rxByte = 0
	}
	return committed
}

// advance samples every cell whose midpoint is at or before now with level.
func (s *Serial) advance(now uint32, level bool) (committed bool) {
	for s.rxBit != rxIdle {
		mid := s.rxStart + uint32(s.rxBit+1)*s.bitCycles + s.bitCycles/2
		if !reached(now, mid) {
			break
		}
		if s.rxBit < rxStop {
			if level {
				s.rxByte |= 1 << uint(s.rxBit)
			}
			s.rxBit++
			continue
		}
		// Stop cell. A space stop bit is a framing error; the byte is kept.
		if s.buf.Put(s.rxByte) {
			committed = true
		}
		s.rxBit = rxIdle
	}
	return committed
}

// resetRx clears the assembly. Callers detach the edge interrupt first or have
// not yet attached it, so the spin only waits out a Poll in progress.
func (s *Serial) resetRx() {
	for !s.rxBusy.CompareAndSwap(false, true) {
	}
	s.rxBit = rxIdle
	s.rxByte = 0
	s.rxLine = true
	if s.rx != nil {
		s.rxLine = s.level()
	}
	s.rxBusy.Store(false)
}
