package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"softserial-go/drivers/softserial"
	"softserial-go/drivers/softserial/sim"
	service "softserial-go/services/softserial"
	"softserial-go/types"
	"softserial-go/x/shmring"
	"softserial-go/x/timex"
)

var simCmd = &cobra.Command{
	Use:   "sim [text]",
	Short: "Loop text through a simulated port",
	Long: `Loop text through a software serial port on a simulated board.

The transmit pin is wired to the receive pin. Each argument is sent as one
line through a session and must come back as a line event.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"hello"}
		}
		buffer, _ := cmd.Flags().GetInt("buffer")
		return runSim(cmd.OutOrStdout(), simOptions{
			Baud:   viper.GetUint32("baud"),
			Invert: viper.GetBool("invert"),
			Buffer: buffer,
			Wait:   viper.GetDuration("timeout"),
			Lines:  args,
		})
	},
}

func init() {
	simCmd.Flags().Int("buffer", softserial.DefaultBufferSize, "receive buffer size")
	rootCmd.AddCommand(simCmd)
}

type simOptions struct {
	Baud   uint32
	Invert bool
	Buffer int
	Wait   time.Duration
	Lines  []string
}

func runSim(w io.Writer, o simOptions) error {
	if o.Wait <= 0 {
		o.Wait = time.Second
	}
	board := sim.NewBoard(sim.NewClock(0), 8)
	if err := board.Connect(4, 5); err != nil {
		return err
	}
	cfg := types.SoftSerialConfig{
		ID:         "sim0",
		RXPin:      4,
		TXPin:      5,
		TXEnPin:    softserial.UnusedPin,
		Baud:       o.Baud,
		Invert:     o.Invert,
		BufferSize: o.Buffer,
	}
	port, err := cfg.Build(board, board.Clock(), softserial.WithInterrupts(board.Interrupts()))
	if err != nil {
		return fmt.Errorf("build port: %w", err)
	}
	info(w, "port %s rx=GP%d tx=GP%d baud=%d invert=%v", cfg.ID, cfg.RXPin, cfg.TXPin, port.BaudRate(), cfg.Invert)

	dev, err := service.New(port, service.Params{ID: cfg.ID, Baud: port.BaudRate()})
	if err != nil {
		return err
	}
	defer dev.Close()
	rep, err := dev.Open(types.SerialSessionOpen{})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	tx := shmring.Get(shmring.Handle(rep.TXHandle))
	rx := shmring.Get(shmring.Handle(rep.RXHandle))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wk := service.NewWorker(2*len(o.Lines) + 2)
	if _, err := wk.Register(ctx, service.ReaderCfg{DevID: cfg.ID, Src: rx, Mode: service.ModeLines, MaxFrame: 256}); err != nil {
		return err
	}

	for _, line := range o.Lines {
		data := []byte(line + "\n")
		if _, err := tx.Write(data); err != nil {
			return fmt.Errorf("queue %q: %w", line, err)
		}
		wk.EmitTX(cfg.ID, data)
	}

	var bad int
	pending := len(o.Lines)
	next := 0
	deadline := time.After(o.Wait)
	for pending > 0 {
		select {
		case ev := <-wk.Events():
			if ev.Dir == service.DirTX {
				info(w, "tx %s wire=%s", preview(ev.Data), timex.FrameTime(port.BaudRate(), 10, len(ev.Data)))
				continue
			}
			want := o.Lines[next]
			next++
			pending--
			if string(ev.Data) != want {
				bad++
				warn(w, "rx %s want %s", preview(ev.Data), preview([]byte(want)))
				continue
			}
			success(w, "rx %s", preview(ev.Data))
		case <-deadline:
			return fmt.Errorf("%d of %d lines did not come back", pending, len(o.Lines))
		}
	}
	if port.Overflow() {
		warn(w, "receive buffer overflowed")
	}
	if bad > 0 {
		return fmt.Errorf("%d lines corrupted", bad)
	}
	return nil
}
