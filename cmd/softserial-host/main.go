// Command softserial-host drives software serial ports from a Linux host: in
// a simulator, through a USB-UART adapter wired to a board running the
// bridge firmware, or on the host's own GPIO.
package main

func main() {
	Execute()
}
