package output

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/coreman2200/rmtpixel/internal/config"
	"github.com/coreman2200/rmtpixel/model"
	"github.com/coreman2200/rmtpixel/ws2812"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// strip is a display.Drawer that keeps the last frame.
type strip struct {
	n      int
	last   *image.NRGBA
	halted int
	closed int
	err    error
}

func (s *strip) String() string          { return "strip" }
func (s *strip) ColorModel() color.Model { return color.NRGBAModel }
func (s *strip) Bounds() image.Rectangle { return image.Rect(0, 0, s.n, 1) }
func (s *strip) Halt() error             { s.halted++; return nil }
func (s *strip) Close() error            { s.closed++; return s.err }

func (s *strip) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	s.last = image.NewNRGBA(r)
	for x := r.Min.X; x < r.Max.X; x++ {
		s.last.Set(x, 0, src.At(sp.X+x-r.Min.X, sp.Y))
	}
	return nil
}

func TestRendererFillsEveryPixel(t *testing.T) {
	s := &strip{n: 3}
	r := NewRenderer(s)
	assert.Equal(t, "strip", r.String())

	require.NoError(t, r.Render(model.NewColor(1, 2, 3)))
	for x := 0; x < 3; x++ {
		assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, s.last.NRGBAAt(x, 0))
	}

	require.NoError(t, r.Clear())
	assert.Equal(t, 1, s.halted)
}

func TestRendererClose(t *testing.T) {
	boom := errors.New("boom")
	s := &strip{n: 1, err: boom}
	assert.ErrorIs(t, NewRenderer(s).Close(), boom)
	assert.Equal(t, 1, s.halted)
	assert.Equal(t, 1, s.closed)
}

// dmaPin is a registered pin that accepts bit streams.
type dmaPin struct {
	gpiotest.Pin
	streams int
}

func (p *dmaPin) StreamOut(s gpiostream.Stream) error {
	p.streams++
	return nil
}

func TestOpenStream(t *testing.T) {
	p := &dmaPin{Pin: gpiotest.Pin{N: "RMTTEST18", Num: 1018}}
	require.NoError(t, gpioreg.Register(p))
	defer func() { _ = gpioreg.Unregister(p.Name()) }()

	cfg := config.Default()
	cfg.Pin = p.Name()
	d, err := Open(cfg)
	require.NoError(t, err)
	dev, ok := d.(*ws2812.Dev)
	require.True(t, ok)
	assert.Equal(t, "ws2812{stream(RMTTEST18)}", dev.String())
	assert.Equal(t, 1, p.streams, "reset sent")

	r := NewRenderer(d)
	require.NoError(t, r.Render(model.NewColor(0, 50, 0)))
	require.NoError(t, r.Close())
	assert.Equal(t, 3, p.streams)
}

func TestOpenErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Pin = "NOSUCHPIN"
	_, err := Open(cfg)
	assert.ErrorContains(t, err, `no pin "NOSUCHPIN"`)

	cfg.Driver = "pwm"
	_, err = Open(cfg)
	assert.ErrorContains(t, err, "unknown driver")

	for _, drv := range []string{config.DriverSPI, config.DriverNRZLED} {
		cfg.Driver = drv
		cfg.SPI.Dev = "NOSUCHPORT"
		_, err = Open(cfg)
		assert.Error(t, err, drv)
	}
}

func TestOpenFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Pin = "NOSUCHPIN"
	cfg.Fallback = true
	d, err := Open(cfg)
	require.NoError(t, err)
	assert.NotNil(t, d)
}
