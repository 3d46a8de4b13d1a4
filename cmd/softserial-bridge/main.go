//go:build rp2040 || rp2350

// Bridges the hardware UART0 (GP0/GP1, 115200) to a software serial port on
// GP4/GP5, through a session's rings.
package main

import (
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"softserial-go/drivers/softserial"
	service "softserial-go/services/softserial"
	"softserial-go/types"
	"softserial-go/x/shmring"
)

var (
	uart = uartx.UART0

	port = types.SoftSerialConfig{
		ID:      "ss0",
		RXPin:   4,
		TXPin:   5,
		TXEnPin: softserial.UnusedPin,
		Baud:    9600,
	}
)

func main() {
	println("[bridge] boot …")
	time.Sleep(1500 * time.Millisecond)

	if err := uart.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		println("[bridge] uart configure error")
		halt()
	}

	s, err := port.Build(softserial.DefaultPinFactory(), softserial.DefaultClock())
	if err != nil {
		println("[bridge] config error:", err.Error())
		halt()
	}
	dev, err := service.New(s, service.Params{ID: port.ID, Baud: port.Baud})
	if err != nil {
		println("[bridge] service error:", err.Error())
		halt()
	}
	rep, err := dev.Open(types.SerialSessionOpen{RXSize: 512, TXSize: 512})
	if err != nil {
		println("[bridge] session_open error:", err.Error())
		halt()
	}
	rx := shmring.Get(shmring.Handle(rep.RXHandle))
	tx := shmring.Get(shmring.Handle(rep.TXHandle))
	println("[bridge] session", rep.SessionID, " rx=", rep.RXHandle, " tx=", rep.TXHandle)

	// UART0 -> software port.
	go func() {
		buf := make([]byte, 64)
		for range uart.Readable() {
			for {
				n := uart.TryRead(buf)
				if n == 0 {
					break
				}
				if w, _ := tx.Write(buf[:n]); w < n {
					println("[bridge] tx ring full, dropped", n-w)
				}
			}
		}
	}()

	// Software port -> UART0.
	buf := make([]byte, 64)
	for {
		for {
			n, _ := rx.Read(buf)
			if n == 0 {
				break
			}
			_, _ = uart.Write(buf[:n])
		}
		if s.Overflow() {
			println("[bridge] software rx overflow")
		}
		<-rx.Readable()
	}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
