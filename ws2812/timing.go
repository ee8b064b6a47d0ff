package ws2812

import (
	"fmt"
	"time"

	"github.com/coreman2200/rmtpixel/rmt"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Timing is the high and low phase of a 0 and a 1 bit.
type Timing struct {
	T0H time.Duration
	T0L time.Duration
	T1H time.Duration
	T1L time.Duration
}

// DefaultTiming works for WS2812, WS2812b and SK6812 parts.
var DefaultTiming = Timing{
	T0H: 350 * time.Nanosecond,
	T0L: 800 * time.Nanosecond,
	T1H: 700 * time.Nanosecond,
	T1L: 600 * time.Nanosecond,
}

// Tolerance is how far each phase may drift from its target.
const Tolerance = 150 * time.Nanosecond

// Items calibrates the timing against a counter running at f.
func (t *Timing) Items(f physic.Frequency) (zero, one rmt.Item, err error) {
	if zero.High, err = rmt.NewPulseWithDuration(f, gpio.High, t.T0H); err != nil {
		return
	}
	if zero.Low, err = rmt.NewPulseWithDuration(f, gpio.Low, t.T0L); err != nil {
		return
	}
	if one.High, err = rmt.NewPulseWithDuration(f, gpio.High, t.T1H); err != nil {
		return
	}
	one.Low, err = rmt.NewPulseWithDuration(f, gpio.Low, t.T1L)
	return
}

// MaxError returns the worst rounding error of any phase at f, rounded up
// to the nanosecond.
func (t *Timing) MaxError(f physic.Frequency) (time.Duration, error) {
	hz := int64(f / physic.Hertz)
	var worst time.Duration
	for _, d := range [...]time.Duration{t.T0H, t.T0L, t.T1H, t.T1L} {
		p, err := rmt.NewPulseWithDuration(f, gpio.Low, d)
		if err != nil {
			return 0, err
		}
		// Exact error in ns*hz, rounded up so it is never reported low.
		diff := int64(p.Ticks)*int64(time.Second) - d.Nanoseconds()*hz
		if diff < 0 {
			diff = -diff
		}
		if e := time.Duration((diff + hz - 1) / hz); e > worst {
			worst = e
		}
	}
	return worst, nil
}

func (t *Timing) validate() error {
	for _, d := range [...]time.Duration{t.T0H, t.T0L, t.T1H, t.T1L} {
		if d <= 0 {
			return fmt.Errorf("%w: phase %s", rmt.ErrDurationRange, d)
		}
	}
	return nil
}
