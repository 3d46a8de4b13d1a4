//go:build rp2350

package softserial

import "device/rp"

func timerRaw() uint32 { return rp.TIMER0.TIMERAWL.Get() }
