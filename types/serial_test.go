package types

import (
	"testing"

	"softserial-go/drivers/softserial"
	"softserial-go/drivers/softserial/sim"
	"softserial-go/errcode"
)

func TestSoftSerialConfigValidate(t *testing.T) {
	board := sim.NewBoard(sim.NewClock(0), 8)
	cases := []struct {
		name string
		cfg  SoftSerialConfig
		want errcode.Code
	}{
		{"ok", SoftSerialConfig{ID: "a", RXPin: 4, TXPin: 5, TXEnPin: -1, Baud: 9600}, errcode.OK},
		{"one-wire", SoftSerialConfig{ID: "a", RXPin: 4, TXPin: 4, TXEnPin: 6}, errcode.OK},
		{"no id", SoftSerialConfig{RXPin: 4, TXPin: 5, TXEnPin: -1}, errcode.InvalidParams},
		{"fast", SoftSerialConfig{ID: "a", RXPin: 4, TXPin: 5, TXEnPin: -1, Baud: 230400}, errcode.InvalidParams},
		{"no pins", SoftSerialConfig{ID: "a", RXPin: -1, TXPin: -1, TXEnPin: -1}, errcode.InvalidParams},
		{"bad pin", SoftSerialConfig{ID: "a", RXPin: 40, TXPin: 5, TXEnPin: -1}, errcode.UnknownPin},
		{"shared enable", SoftSerialConfig{ID: "a", RXPin: 4, TXPin: 5, TXEnPin: 5}, errcode.Conflict},
	}
	for _, c := range cases {
		if got := errcode.Of(c.cfg.Validate(board)); got != c.want {
			t.Fatalf("%s: got=%q want=%q", c.name, got, c.want)
		}
	}
}

func TestSoftSerialConfigBuild(t *testing.T) {
	board := sim.NewBoard(sim.NewClock(0), 8)
	board.Connect(4, 5)
	cfg := SoftSerialConfig{ID: "a", RXPin: 4, TXPin: 5, TXEnPin: softserial.UnusedPin, Baud: 19200, BufferSize: 4}
	s, err := cfg.Build(board, board.Clock(), softserial.WithInterrupts(board.Interrupts()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if s.BaudRate() != 19200 || !s.IsListening() {
		t.Fatalf("baud=%d listening=%v", s.BaudRate(), s.IsListening())
	}
	s.WriteString("abcde")
	if got := s.Available(); got != 4 {
		t.Fatalf("available=%d want=4 (buffer_size)", got)
	}
}

func TestBoardConfigPinReuse(t *testing.T) {
	board := sim.NewBoard(sim.NewClock(0), 8)
	cfg := BoardConfig{Ports: []SoftSerialConfig{
		{ID: "a", RXPin: 2, TXPin: 2, TXEnPin: -1},
		{ID: "b", RXPin: 3, TXPin: 2, TXEnPin: -1},
	}}
	if got := errcode.Of(cfg.Validate(board)); got != errcode.PinInUse {
		t.Fatalf("got=%q want=%q", got, errcode.PinInUse)
	}
	cfg.Ports[1].TXPin = 4
	if err := cfg.Validate(board); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cfg.Ports[1].ID = "a"
	if got := errcode.Of(cfg.Validate(board)); got != errcode.Conflict {
		t.Fatalf("got=%q want=%q", got, errcode.Conflict)
	}
}
