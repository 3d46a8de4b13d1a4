package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"periph.io/x/host/v3"

	"softserial-go/drivers/softserial"
	"softserial-go/drivers/softserial/periphpin"
	"softserial-go/types"
)

var gpioCmd = &cobra.Command{
	Use:   "gpio [text]",
	Short: "Run a software port on this host's GPIO",
	Long: `Run a software serial port on the host's own GPIO lines and send text.

With --rx and --tx jumpered the text loops back and is compared. Edge
delivery goes through the kernel, so keep the rate low (1200-4800).

Example usage:
  softserial-host gpio --rx 23 --tx 24 --baud 2400 "hello"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := "hello"
		if len(args) == 1 {
			text = args[0]
		}
		rx, _ := cmd.Flags().GetInt("rx")
		tx, _ := cmd.Flags().GetInt("tx")
		txEn, _ := cmd.Flags().GetInt("tx-enable")

		if _, err := host.Init(); err != nil {
			return fmt.Errorf("host init: %w", err)
		}
		cfg := types.SoftSerialConfig{
			ID:      "gpio",
			RXPin:   rx,
			TXPin:   tx,
			TXEnPin: txEn,
			Baud:    viper.GetUint32("baud"),
			Invert:  viper.GetBool("invert"),
		}
		pins := periphpin.NewFactory(nil)
		s, err := cfg.Build(pins, periphpin.NewClock())
		if err != nil {
			return fmt.Errorf("build port: %w", err)
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		info(out, "rx=%d tx=%d baud=%d listening=%v", rx, tx, s.BaudRate(), s.IsListening())
		if _, err := s.WriteString(text); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		info(out, "sent %s", preview([]byte(text)))
		if !s.IsListening() {
			return nil
		}

		wait := viper.GetDuration("timeout")
		if wait <= 0 {
			wait = time.Second
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), wait)
		defer cancel()
		got := make([]byte, 0, len(text))
		buf := make([]byte, 64)
		for len(got) < len(text) {
			n, err := s.RecvSomeContext(ctx, buf)
			if err != nil {
				break
			}
			got = append(got, buf[:n]...)
		}
		if string(got) != text {
			warn(out, "received %s", preview(got))
			return fmt.Errorf("loopback mismatch")
		}
		success(out, "received %s", preview(got))
		if s.Overflow() {
			warn(out, "receive buffer overflowed")
		}
		return nil
	},
}

func init() {
	f := gpioCmd.Flags()
	f.Int("rx", softserial.UnusedPin, "receive GPIO number")
	f.Int("tx", softserial.UnusedPin, "transmit GPIO number")
	f.Int("tx-enable", softserial.UnusedPin, "transmit-enable GPIO number")
	rootCmd.AddCommand(gpioCmd)
}
