package rmt

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SPIChannel generates pulse trains by shifting the rasterized ticks out of
// a SPI port's MOSI line; every SPI clock is one tick.
type SPIChannel struct {
	port spi.Port
	base physic.Frequency

	claim
	conn spi.Conn
	freq physic.Frequency
	buf  []byte
}

func NewSPIChannel(port spi.Port, base physic.Frequency) *SPIChannel {
	return &SPIChannel{port: port, base: base}
}

func (s *SPIChannel) String() string {
	return fmt.Sprintf("spi(%s)", s.port)
}

// Configure implements Channel. When the port exposes its pins, p must be
// its MOSI line; a nil p selects MOSI implicitly.
func (s *SPIChannel) Configure(p gpio.PinOut, cfg TxConfig) error {
	if pins, ok := s.port.(spi.Pins); ok && p != nil {
		if mosi := pins.MOSI(); mosi != nil && mosi.Name() != p.Name() {
			return fmt.Errorf("%w: %s is not %s's MOSI (%s)", ErrPin, p, s.port, mosi)
		}
	}
	if cfg.IdleLevel == gpio.High {
		return fmt.Errorf("%w: SPI MOSI idles low", ErrPin)
	}
	f, err := divide(s.base, cfg.ClockDivider)
	if err != nil {
		return err
	}
	if err := s.claim.configure(cfg); err != nil {
		return err
	}
	c, err := s.port.Connect(f, spi.Mode0, 8)
	if err != nil {
		s.claim.configured = false
		return fmt.Errorf("rmt: spi connect: %w", err)
	}
	s.conn, s.freq = c, f
	return nil
}

func (s *SPIChannel) CounterClock() (physic.Frequency, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.freq, nil
}

func (s *SPIChannel) StartBlocking(items []Item) error {
	if err := s.ready(); err != nil {
		return err
	}
	latch, err := latchTicks(s.freq, &s.cfg)
	if err != nil {
		return err
	}
	s.buf, _ = Raster(s.buf, items, gpio.Low, latch)
	if err := s.conn.Tx(s.buf, nil); err != nil {
		return fmt.Errorf("rmt: spi tx: %w", err)
	}
	return nil
}

// Close releases the channel. The port itself belongs to the caller.
func (s *SPIChannel) Close() error {
	return s.release()
}

var _ Channel = &SPIChannel{}
