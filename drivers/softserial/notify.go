package softserial

// Notifier is told after each byte is committed to the receive ring. Notify
// runs in interrupt context (or inside Poll) and must not block; available
// is the number of buffered bytes at that moment.
type Notifier interface {
	Notify(available int)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(available int)

func (f NotifyFunc) Notify(available int) { f(available) }

type notifierSlot struct{ n Notifier }

// OnReceive installs n, replacing any previous handler. nil removes it.
func (s *Serial) OnReceive(n Notifier) {
	if n == nil {
		s.handler.Store(nil)
		return
	}
	s.handler.Store(&notifierSlot{n: n})
}

// Readable is signalled (coalesced) after bytes are committed.
func (s *Serial) Readable() <-chan struct{} { return s.readable }

func (s *Serial) notify() {
	select {
	case s.readable <- struct{}{}:
	default:
	}
	if slot := s.handler.Load(); slot != nil {
		slot.n.Notify(s.buf.Available())
	}
}
