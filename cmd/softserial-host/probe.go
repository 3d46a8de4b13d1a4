package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tarm/serial"

	"softserial-go/x/timex"
)

var probeCmd = &cobra.Command{
	Use:   "probe <device> [text]",
	Short: "Check a board running the bridge firmware",
	Long: `Send text to a board through a USB-UART adapter and expect it back.

The board runs softserial-bridge with GP4 jumpered to GP5, so every byte
crosses the software port twice before it is echoed on UART0.

Example usage:
  softserial-host probe /dev/ttyUSB0 "hello"
  SOFTSERIAL_TIMEOUT=2s softserial-host probe /dev/ttyACM0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := "softserial probe"
		if len(args) == 2 {
			text = args[1]
		}
		link, _ := cmd.Flags().GetInt("link-baud")
		wait := viper.GetDuration("timeout")
		if wait <= 0 {
			// Round trip at the software rate plus slack.
			wait = 2*timex.FrameTime(viper.GetUint32("baud"), 10, len(text)) + 500*time.Millisecond
		}
		p, err := serial.OpenPort(&serial.Config{
			Name:        args[0],
			Baud:        link,
			ReadTimeout: 50 * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer p.Close()
		info(cmd.OutOrStdout(), "opened %s at %d baud", args[0], link)
		return probe(cmd.OutOrStdout(), p, []byte(text), wait)
	},
}

func init() {
	probeCmd.Flags().Int("link-baud", 115200, "USB-UART baud rate (board UART0)")
	rootCmd.AddCommand(probeCmd)
}

// probe writes data and reads until the same bytes come back or wait
// elapses. rw.Read is expected to return 0 on a read timeout.
func probe(w io.Writer, rw io.ReadWriter, data []byte, wait time.Duration) error {
	if _, err := rw.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	info(w, "sent %s", preview(data))

	got := make([]byte, 0, len(data))
	buf := make([]byte, 64)
	deadline := time.Now().Add(wait)
	for len(got) < len(data) && time.Now().Before(deadline) {
		n, err := rw.Read(buf)
		if err != nil && err != io.EOF {
			return fmt.Errorf("read: %w", err)
		}
		got = append(got, buf[:n]...)
	}
	switch {
	case bytes.Equal(got, data):
		success(w, "echo %s", preview(got))
		return nil
	case len(got) == 0:
		return fmt.Errorf("no echo within %s", wait)
	default:
		warn(w, "echo %s", preview(got))
		return fmt.Errorf("echo mismatch: %d of %d bytes", len(got), len(data))
	}
}
