package output

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/coreman2200/rmtpixel/internal/config"
	"github.com/coreman2200/rmtpixel/model"
	"github.com/coreman2200/rmtpixel/rmt"
	"github.com/coreman2200/rmtpixel/ws2812"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
)

// Renderer fills a drawer with a single color per frame.
type Renderer struct {
	drawer display.Drawer
	frame  *image.NRGBA
}

func NewRenderer(d display.Drawer) *Renderer {
	return &Renderer{drawer: d, frame: image.NewNRGBA(d.Bounds())}
}

func (r *Renderer) String() string {
	return r.drawer.String()
}

// Render draws c on every pixel of the drawer.
func (r *Renderer) Render(c model.Color) error {
	n := c.NRGBA()
	b := r.frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r.frame.SetNRGBA(x, y, n)
		}
	}
	return r.drawer.Draw(r.drawer.Bounds(), r.frame, b.Min)
}

// Clear turns the output off.
func (r *Renderer) Clear() error {
	return r.drawer.Halt()
}

// Close turns the output off and releases the hardware.
func (r *Renderer) Close() error {
	err := r.Clear()
	if c, ok := r.drawer.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Open builds the drawer selected by cfg.Driver. When the hardware cannot
// be opened and cfg.Fallback is set, it prints at the console instead.
func Open(cfg *config.Config) (display.Drawer, error) {
	d, err := open(cfg)
	if err != nil && cfg.Fallback && cfg.Driver != config.DriverConsole {
		log.Warn().Err(err).Str("driver", cfg.Driver).Msg("output init failed; falling back to console")
		return screen.New(1), nil
	}
	return d, err
}

func open(cfg *config.Config) (display.Drawer, error) {
	opts := ws2812.DefaultOpts
	opts.ClockDivider = cfg.ClockDivider
	opts.Strict = cfg.Strict
	opts.Latch = cfg.Latch

	switch cfg.Driver {
	case config.DriverStream:
		p := gpioreg.ByName(cfg.Pin)
		if p == nil {
			return nil, fmt.Errorf("output: no pin %q", cfg.Pin)
		}
		ch := rmt.NewStreamChannel(physic.Frequency(cfg.Stream.BaseHz) * physic.Hertz)
		d, err := ws2812.New(p, ch, &opts)
		if err != nil {
			return nil, err
		}
		return d, nil

	case config.DriverSPI:
		port, err := spireg.Open(cfg.SPI.Dev)
		if err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
		ch := rmt.NewSPIChannel(port, physic.Frequency(cfg.SPI.BaseHz)*physic.Hertz)
		d, err := ws2812.New(nil, ch, &opts)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		return &portDrawer{Drawer: d, port: port}, nil

	case config.DriverNRZLED:
		port, err := spireg.Open(cfg.SPI.Dev)
		if err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
		d, err := nrzled.NewSPI(port, &nrzled.Opts{NumPixels: 1, Channels: 3, Freq: 2500 * physic.KiloHertz})
		if err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("output: %w", err)
		}
		return &portDrawer{Drawer: d, port: port}, nil

	case config.DriverConsole:
		return screen.New(1), nil
	}
	return nil, fmt.Errorf("output: unknown driver %q", cfg.Driver)
}

// portDrawer closes the SPI port once the drawer is done with it.
type portDrawer struct {
	display.Drawer
	port spi.PortCloser
}

func (p *portDrawer) Close() error {
	var err error
	if c, ok := p.Drawer.(io.Closer); ok {
		err = c.Close()
	}
	return errors.Join(err, p.port.Close())
}
