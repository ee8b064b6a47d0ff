// Package rmt models a remote-control style pulse train peripheral: a
// channel that clocks out pairs of (level, duration) pulses on one pin with
// tick accurate timing.
//
// Two host implementations are provided. StreamChannel rasterizes pulses
// into a gpiostream.BitStream for pins that support DMA streaming and
// SPIChannel shifts the same bits out of a SPI MOSI line. Package rmttest
// has fakes for tests.
package rmt

import (
	"errors"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var (
	ErrBusy             = errors.New("rmt: channel already claimed")
	ErrClosed           = errors.New("rmt: channel closed")
	ErrNotConfigured    = errors.New("rmt: channel not configured")
	ErrDivider          = errors.New("rmt: clock divider must be non-zero")
	ErrInvalidFrequency = errors.New("rmt: invalid frequency")
	ErrDurationRange    = errors.New("rmt: duration out of range")
	ErrIndex            = errors.New("rmt: index out of range")
	ErrPin              = errors.New("rmt: unsupported pin")
)

// DefaultLatch is how long the line is held idle after each transmission
// so the LED latches the frame.
const DefaultLatch = 300 * time.Microsecond

// MaxLatch bounds the latch so a frame stays a few kilobytes at most.
const MaxLatch = 10 * time.Millisecond

// TxConfig configures a channel for transmission.
type TxConfig struct {
	// ClockDivider divides the channel's base clock to produce the tick
	// counter. Higher values give longer trains with coarser resolution.
	ClockDivider uint8
	// IdleLevel is driven between transmissions.
	IdleLevel gpio.Level
	// Latch is the idle time appended after each transmission. Zero means
	// DefaultLatch.
	Latch time.Duration
}

func (c *TxConfig) latch() time.Duration {
	if c.Latch <= 0 {
		return DefaultLatch
	}
	return c.Latch
}

// Channel is a pulse train generator bound to one output pin.
//
// A Channel is owned by exactly one user: Configure claims it and Close
// releases it. Implementations are not required to be safe for concurrent
// use.
type Channel interface {
	fmt.Stringer
	// Configure binds the channel to pin and claims it.
	Configure(pin gpio.PinOut, cfg TxConfig) error
	// CounterClock returns the tick frequency after configuration.
	CounterClock() (physic.Frequency, error)
	// StartBlocking transmits items and returns once the last pulse left
	// the pin. Transmission stops at the first zero tick pulse.
	StartBlocking(items []Item) error
	io.Closer
}

// claim tracks the ownership state shared by the host channels.
type claim struct {
	cfg        TxConfig
	configured bool
	closed     bool
}

func (c *claim) configure(cfg TxConfig) error {
	switch {
	case c.closed:
		return ErrClosed
	case c.configured:
		return ErrBusy
	case cfg.ClockDivider == 0:
		return ErrDivider
	}
	c.cfg = cfg
	c.configured = true
	return nil
}

func (c *claim) ready() error {
	switch {
	case c.closed:
		return ErrClosed
	case !c.configured:
		return ErrNotConfigured
	}
	return nil
}

func (c *claim) release() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return nil
}

func divide(base physic.Frequency, div uint8) (physic.Frequency, error) {
	if base <= 0 {
		return 0, fmt.Errorf("%w: base clock %s", ErrInvalidFrequency, base)
	}
	if div == 0 {
		return 0, ErrDivider
	}
	f := base / physic.Frequency(div)
	if f < physic.Hertz {
		return 0, fmt.Errorf("%w: %s / %d", ErrInvalidFrequency, base, div)
	}
	return f, nil
}
