//go:build rp2040 || rp2350

// Loopback self-test: jumper GP4 to GP5. Sends numbered lines through the
// software port and reports what came back.
package main

import (
	"context"
	"time"

	"softserial-go/drivers/softserial"
	service "softserial-go/services/softserial"
	"softserial-go/types"
)

var port = types.SoftSerialConfig{
	ID:      "ss0",
	RXPin:   4,
	TXPin:   5,
	TXEnPin: softserial.UnusedPin,
	Baud:    9600,
}

func main() {
	println("[softserial] boot …")
	time.Sleep(1500 * time.Millisecond)

	s, err := port.Build(softserial.DefaultPinFactory(), softserial.DefaultClock())
	if err != nil {
		println("[softserial] config error:", err.Error())
		halt()
	}
	println("[softserial] listening=", s.IsListening(), " baud=", s.BaudRate())

	ctx := context.Background()
	w := service.NewWorker(16)
	if _, err := w.Register(ctx, service.ReaderCfg{
		DevID: port.ID,
		Src:   s,
		Mode:  service.ModeLines,
	}); err != nil {
		println("[softserial] worker error:", err.Error())
		halt()
	}

	go func() {
		line := []byte("ping 0\n")
		for n := 0; ; n++ {
			line[5] = byte('0' + n%10)
			if _, err := s.Write(line); err != nil {
				println("[softserial] write error:", err.Error())
			}
			time.Sleep(500 * time.Millisecond)
		}
	}()

	var got, lost int
	for ev := range w.Events() {
		got++
		if s.Overflow() {
			lost++
		}
		println("[softserial] rx", string(ev.Data), " ok=", got, " overflow=", lost)
	}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
