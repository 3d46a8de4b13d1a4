package softserial

// WriteByte sends one 8N1 frame and returns once the stop bit has been held
// for a full bit period. Bit edges are scheduled from a single start stamp so
// wait overruns do not accumulate.
func (s *Serial) WriteByte(c byte) error {
	if !s.txValid {
		return ErrTxDisabled
	}

	var state uintptr
	if !s.intTx {
		state = s.irq.Disable()
	}

	// A one-wire line turned around here goes back to the reception state
	// the caller left it in.
	turned, listening := false, s.rxEnabled
	if s.oneWire && !s.txActive {
		s.EnableTx(true)
		turned = true
	}
	if s.txEnableValid {
		s.txEnable.Set(true)
	}

	bit := s.bitCycles
	t := s.clock.Cycles()
	s.tx.Set(s.physical(false)) // start
	for i := 0; i < 8; i++ {
		t += bit
		s.clock.WaitUntil(t)
		s.tx.Set(s.physical(c&(1<<uint(i)) != 0))
	}
	t += bit
	s.clock.WaitUntil(t)
	s.tx.Set(s.physical(true)) // stop
	t += bit
	s.clock.WaitUntil(t)

	if s.txEnableValid {
		s.txEnable.Set(false)
	}
	if turned {
		s.releaseLine()
		if listening {
			s.EnableRx(true)
		}
	}
	if !s.intTx {
		s.irq.Restore(state)
	}
	return nil
}

// Write sends p byte by byte. It stops at the first failure.
func (s *Serial) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if err = s.WriteByte(c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// WriteString is Write for a string.
func (s *Serial) WriteString(str string) (n int, err error) {
	for i := 0; i < len(str); i++ {
		if err = s.WriteByte(str[i]); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
