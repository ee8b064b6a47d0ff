package rmt

import (
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// MaxTicks is the largest duration a single pulse can hold. The hardware
// item stores it in a 15 bit field.
const MaxTicks = 1<<15 - 1

// Pulse is a logic level held for a number of counter ticks.
//
// A zero tick pulse marks the end of a transmission.
type Pulse struct {
	Level gpio.Level
	Ticks uint16
}

func NewPulse(level gpio.Level, ticks uint16) (Pulse, error) {
	if ticks > MaxTicks {
		return Pulse{}, fmt.Errorf("%w: %d ticks", ErrDurationRange, ticks)
	}
	return Pulse{Level: level, Ticks: ticks}, nil
}

// NewPulseWithDuration converts d into ticks of a counter running at f,
// rounding to the nearest tick. A non-zero duration always yields at least
// one tick.
func NewPulseWithDuration(f physic.Frequency, level gpio.Level, d time.Duration) (Pulse, error) {
	t, err := Ticks(f, d)
	if err != nil {
		return Pulse{}, err
	}
	if t > MaxTicks {
		return Pulse{}, fmt.Errorf("%w: %s is %d ticks at %s", ErrDurationRange, d, t, f)
	}
	return Pulse{Level: level, Ticks: uint16(t)}, nil
}

// Ticks is the number of periods of f that fit in d, rounded to nearest.
func Ticks(f physic.Frequency, d time.Duration) (int64, error) {
	hz := int64(f / physic.Hertz)
	if hz <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFrequency, f)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: negative duration %s", ErrDurationRange, d)
	}
	if d.Nanoseconds() > math.MaxInt64/hz {
		return 0, fmt.Errorf("%w: %s overflows at %s", ErrDurationRange, d, f)
	}
	t := (d.Nanoseconds()*hz + int64(time.Second)/2) / int64(time.Second)
	if t == 0 && d > 0 {
		t = 1
	}
	return t, nil
}

// Duration is the real time the pulse lasts at f.
func (p Pulse) Duration(f physic.Frequency) time.Duration {
	hz := int64(f / physic.Hertz)
	if hz <= 0 {
		return 0
	}
	return time.Duration(int64(p.Ticks) * int64(time.Second) / hz)
}

func (p Pulse) String() string {
	return fmt.Sprintf("%s/%d", p.Level, p.Ticks)
}
