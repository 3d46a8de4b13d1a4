package types

import (
	"softserial-go/drivers/softserial"
	"softserial-go/errcode"
)

// ------------------------
// Software serial
// ------------------------

// SoftSerialConfig declares one software serial port. Pin numbers use the
// board's GP numbering; -1 leaves a role unwired. Equal rx and tx pins select
// one-wire mode.
type SoftSerialConfig struct {
	ID         string `json:"id"`
	RXPin      int    `json:"rx_pin"`
	TXPin      int    `json:"tx_pin"`
	TXEnPin    int    `json:"tx_en_pin"`
	Baud       uint32 `json:"baud,omitempty"`
	Invert     bool   `json:"invert,omitempty"`
	BufferSize int    `json:"buffer_size,omitempty"`
	// MaskTX holds interrupts off while a byte is transmitted.
	MaskTX bool `json:"mask_tx,omitempty"`
}

// Validate checks the declaration against the pins a factory accepts.
func (c SoftSerialConfig) Validate(pins softserial.PinFactory) error {
	const op = "softserial_config"
	if c.ID == "" {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "missing id"}
	}
	if c.Baud > softserial.MaxBaud {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "baud above maximum"}
	}
	if c.BufferSize < 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "negative buffer_size"}
	}
	if c.RXPin == softserial.UnusedPin && c.TXPin == softserial.UnusedPin {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "no pins"}
	}
	for _, p := range []struct {
		name string
		n    int
	}{{"rx_pin", c.RXPin}, {"tx_pin", c.TXPin}, {"tx_en_pin", c.TXEnPin}} {
		if p.n == softserial.UnusedPin {
			continue
		}
		if pins != nil {
			if _, ok := pins.ByNumber(p.n); !ok {
				return &errcode.E{C: errcode.UnknownPin, Op: op, Msg: p.name}
			}
		}
	}
	if c.TXEnPin != softserial.UnusedPin && (c.TXEnPin == c.RXPin || c.TXEnPin == c.TXPin) {
		return &errcode.E{C: errcode.Conflict, Op: op, Msg: "tx_en_pin shared with data pin"}
	}
	return nil
}

// OneWire reports whether rx and tx share a pin.
func (c SoftSerialConfig) OneWire() bool {
	return c.RXPin == c.TXPin && c.RXPin != softserial.UnusedPin
}

// Options returns the constructor options the declaration implies.
func (c SoftSerialConfig) Options() []softserial.Option {
	opts := []softserial.Option{softserial.WithInverseLogic(c.Invert)}
	if c.BufferSize > 0 {
		opts = append(opts, softserial.WithBufferSize(c.BufferSize))
	}
	return opts
}

// Build constructs and starts a driver from the declaration. Extra options
// are applied after those derived from the config.
func (c SoftSerialConfig) Build(pins softserial.PinFactory, clk softserial.Clock, extra ...softserial.Option) (*softserial.Serial, error) {
	if err := c.Validate(pins); err != nil {
		return nil, err
	}
	s := softserial.New(pins, clk, c.RXPin, c.TXPin, append(c.Options(), extra...)...)
	s.Begin(c.Baud)
	if c.TXEnPin != softserial.UnusedPin {
		s.SetTransmitEnablePin(c.TXEnPin)
	}
	s.EnableIntTx(!c.MaskTX)
	return s, nil
}

// ------------------------
// Sessions
// ------------------------

type SerialSessionOpen struct {
	// Ring sizes in bytes. Defaults apply if zero.
	RXSize int `json:"rx_size,omitempty"`
	TXSize int `json:"tx_size,omitempty"`
}

type SerialSessionOpened struct {
	SessionID uint32 `json:"session_id"`
	RXHandle  uint32 `json:"rx_handle"`
	TXHandle  uint32 `json:"tx_handle"`
	TS        int64  `json:"ts_ms"`
}

type SerialInfo struct {
	ID   string `json:"id"`
	Baud uint32 `json:"baud"` // 0 if unspecified
}
