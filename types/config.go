package types

import (
	"softserial-go/drivers/softserial"
	"softserial-go/errcode"
)

// BoardConfig lists the software serial ports a board runs.
type BoardConfig struct {
	Ports []SoftSerialConfig `json:"ports"`
}

// Validate checks every port and that no pin serves two ports and no two
// ports share an id.
func (b BoardConfig) Validate(pins softserial.PinFactory) error {
	owner := make(map[int]string)
	ids := make(map[string]bool)
	for _, p := range b.Ports {
		if err := p.Validate(pins); err != nil {
			return err
		}
		if ids[p.ID] {
			return &errcode.E{C: errcode.Conflict, Op: "board_config", Msg: "duplicate id " + p.ID}
		}
		ids[p.ID] = true
		used := []int{p.RXPin, p.TXPin, p.TXEnPin}
		if p.OneWire() {
			used = []int{p.RXPin, p.TXEnPin}
		}
		for _, n := range used {
			if n == softserial.UnusedPin {
				continue
			}
			if other, ok := owner[n]; ok {
				return &errcode.E{C: errcode.PinInUse, Op: "board_config", Msg: p.ID + " and " + other}
			}
			owner[n] = p.ID
		}
	}
	return nil
}
