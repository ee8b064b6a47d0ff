package rmt

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// SignalLen is the number of items needed for one 24 bit pixel.
const SignalLen = 24

// Item is a pair of pulses sent back to back. For NRZ LEDs the first one
// is the high phase and the second one the low phase of a bit.
type Item struct {
	High Pulse
	Low  Pulse
}

// Encode packs the item in the 32 bit layout used by the peripheral's
// memory: duration0 in bits 0-14, level0 in bit 15, duration1 in bits
// 16-30, level1 in bit 31.
func (it Item) Encode() uint32 {
	return encodePulse(it.High) | encodePulse(it.Low)<<16
}

func encodePulse(p Pulse) uint32 {
	v := uint32(p.Ticks) & MaxTicks
	if p.Level == gpio.High {
		v |= 1 << 15
	}
	return v
}

func DecodeItem(v uint32) Item {
	return Item{High: decodePulse(uint16(v)), Low: decodePulse(uint16(v >> 16))}
}

func decodePulse(v uint16) Pulse {
	return Pulse{Level: v&(1<<15) != 0, Ticks: v & MaxTicks}
}

// End reports whether the item terminates the transmission.
func (it Item) End() bool {
	return it.High.Ticks == 0 || it.Low.Ticks == 0
}

func (it Item) String() string {
	return fmt.Sprintf("{%s %s}", it.High, it.Low)
}

// Signal is a fixed length pulse train for one pixel. It lives on the
// stack; the zero value is the reset signal: every item is an idle end
// marker.
type Signal [SignalLen]Item

// Set stores it at index i.
func (s *Signal) Set(i int, it Item) error {
	if i < 0 || i >= len(s) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	s[i] = it
	return nil
}

// ResetSignal returns the signal sent once at startup to arm the LED.
func ResetSignal() Signal {
	return Signal{}
}
