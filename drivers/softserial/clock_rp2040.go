//go:build rp2040

package softserial

import "device/rp"

// timerRaw reads the low word of the microsecond timer without latching.
func timerRaw() uint32 { return rp.TIMER.TIMERAWL.Get() }
