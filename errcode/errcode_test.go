package errcode

import (
	"fmt"
	"testing"

	"softserial-go/drivers/softserial"
)

func TestOf(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, OK},
		{Busy, Busy},
		{&E{C: PinInUse, Op: "open"}, PinInUse},
		{fmt.Errorf("wrapped: %w", &E{C: Conflict}), Conflict},
		{softserial.ErrTxDisabled, Unsupported},
		{fmt.Errorf("read: %w", softserial.ErrNoData), NoData},
		{fmt.Errorf("other"), Error},
	}
	for i, c := range cases {
		if got := Of(c.err); got != c.want {
			t.Fatalf("case %d: got=%q want=%q", i, got, c.want)
		}
	}
}

func TestEString(t *testing.T) {
	e := &E{C: UnknownPin, Op: "config", Msg: "rx_pin 40"}
	if got, want := e.Error(), "config: unknown_pin: rx_pin 40"; got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}
