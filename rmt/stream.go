package rmt

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/physic"
)

// StreamChannel generates pulse trains on a pin that supports bit
// streaming, like the DMA backed pins on a Raspberry Pi.
type StreamChannel struct {
	base physic.Frequency

	claim
	pin  gpiostream.PinOut
	out  gpio.PinOut
	freq physic.Frequency
	buf  []byte
}

// NewStreamChannel returns a channel whose counter runs at base divided by
// the configured divider.
func NewStreamChannel(base physic.Frequency) *StreamChannel {
	return &StreamChannel{base: base}
}

func (s *StreamChannel) String() string {
	if s.out == nil {
		return "stream"
	}
	return "stream(" + s.out.Name() + ")"
}

// Configure implements Channel. p must also implement gpiostream.PinOut.
func (s *StreamChannel) Configure(p gpio.PinOut, cfg TxConfig) error {
	if p == nil {
		return fmt.Errorf("%w: nil pin", ErrPin)
	}
	sp, ok := p.(gpiostream.PinOut)
	if !ok {
		return fmt.Errorf("%w: %s does not support streaming", ErrPin, p)
	}
	f, err := divide(s.base, cfg.ClockDivider)
	if err != nil {
		return err
	}
	if err := s.claim.configure(cfg); err != nil {
		return err
	}
	if err := p.Out(cfg.IdleLevel); err != nil {
		s.claim.configured = false
		return fmt.Errorf("rmt: idle %s: %w", p, err)
	}
	s.pin, s.out, s.freq = sp, p, f
	return nil
}

func (s *StreamChannel) CounterClock() (physic.Frequency, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.freq, nil
}

func (s *StreamChannel) StartBlocking(items []Item) error {
	if err := s.ready(); err != nil {
		return err
	}
	latch, err := latchTicks(s.freq, &s.cfg)
	if err != nil {
		return err
	}
	s.buf, _ = Raster(s.buf, items, s.cfg.IdleLevel, latch)
	b := gpiostream.BitStream{Bits: s.buf, Freq: s.freq}
	if err := s.pin.StreamOut(&b); err != nil {
		return fmt.Errorf("rmt: stream out: %w", err)
	}
	return nil
}

// Close releases the channel and leaves the pin at the idle level.
func (s *StreamChannel) Close() error {
	if err := s.release(); err != nil {
		return err
	}
	if s.out != nil {
		return s.out.Out(s.cfg.IdleLevel)
	}
	return nil
}

var _ Channel = &StreamChannel{}
