package ws2812

import (
	"image"
	"image/color"
	"time"

	"github.com/coreman2200/rmtpixel/model"
	"github.com/coreman2200/rmtpixel/rmt"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ClockDivider trades maximum train length for timing resolution.
const ClockDivider = 2

// Opts defines the options for the device.
type Opts struct {
	Timing       Timing
	ClockDivider uint8

	// Latch is the idle time after each frame; zero uses rmt.DefaultLatch.
	Latch time.Duration

	// Strict fails New when a calibrated phase is off by more than
	// Tolerance. Otherwise it is only logged.
	Strict bool
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Timing:       DefaultTiming,
	ClockDivider: ClockDivider,
}

// Dev is a handle to one LED.
//
// Dev owns its channel. It is not safe for concurrent use.
type Dev struct {
	ch   rmt.Channel
	freq physic.Frequency
	zero rmt.Item
	one  rmt.Item
}

// New claims ch on pin, calibrates the bit timing against the channel's
// counter clock and sends a reset signal.
//
// The channel is closed if any step fails.
func New(pin gpio.PinOut, ch rmt.Channel, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.Timing.validate(); err != nil {
		return nil, &HardwareConfigError{Op: "calibrate", Err: err}
	}
	cfg := rmt.TxConfig{ClockDivider: opts.ClockDivider, IdleLevel: gpio.Low, Latch: opts.Latch}
	if err := ch.Configure(pin, cfg); err != nil {
		return nil, &HardwareConfigError{Op: "configure", Err: err}
	}
	d, err := newDev(ch, opts)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return d, nil
}

func newDev(ch rmt.Channel, opts *Opts) (*Dev, error) {
	f, err := ch.CounterClock()
	if err != nil {
		return nil, &HardwareConfigError{Op: "counter clock", Err: err}
	}
	zero, one, err := opts.Timing.Items(f)
	if err != nil {
		return nil, &HardwareConfigError{Op: "calibrate", Err: err}
	}
	worst, err := opts.Timing.MaxError(f)
	if err != nil {
		return nil, &HardwareConfigError{Op: "calibrate", Err: err}
	}
	if worst > Tolerance {
		if opts.Strict {
			return nil, &HardwareConfigError{Op: "tolerance", Err: &toleranceError{freq: f, worst: worst}}
		}
		log.Warn().
			Stringer("channel", ch).
			Stringer("freq", f).
			Dur("error", worst).
			Msg("ws2812 timing outside tolerance")
	}
	log.Debug().
		Stringer("channel", ch).
		Stringer("freq", f).
		Stringer("zero", zero).
		Stringer("one", one).
		Msg("ws2812 calibrated")

	d := &Dev{ch: ch, freq: f, zero: zero, one: one}
	reset := rmt.ResetSignal()
	if err := ch.StartBlocking(reset[:]); err != nil {
		return nil, &TransmitError{Op: "reset", Err: err}
	}
	return d, nil
}

func (d *Dev) String() string {
	if d.ch == nil {
		return "ws2812{closed}"
	}
	return "ws2812{" + d.ch.String() + "}"
}

// Frequency is the calibrated counter clock.
func (d *Dev) Frequency() physic.Frequency {
	return d.freq
}

// Items returns the pulse pairs used for a 0 and a 1 bit.
func (d *Dev) Items() (zero, one rmt.Item) {
	return d.zero, d.one
}

// Encode builds the pulse train for c: GRB order, most significant bit
// first.
func (d *Dev) Encode(c model.Color) rmt.Signal {
	var s rmt.Signal
	grb := c.GRB()
	for i := rmt.SignalLen - 1; i >= 0; i-- {
		it := d.zero
		if grb&(1<<uint(i)) != 0 {
			it = d.one
		}
		s[rmt.SignalLen-1-i] = it
	}
	return s
}

// SetPixel sends c and blocks until the whole train left the pin.
func (d *Dev) SetPixel(c model.Color) error {
	if d.ch == nil {
		return &TransmitError{Op: "set pixel", Err: rmt.ErrClosed}
	}
	s := d.Encode(c)
	if err := d.ch.StartBlocking(s[:]); err != nil {
		return &TransmitError{Op: "set pixel", Err: err}
	}
	return nil
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer. The device is a single pixel.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, 1, 1)
}

// Draw implements display.Drawer. The pixel takes the color of src at the
// point matching (0, 0).
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if !image.Pt(0, 0).In(r) {
		return nil
	}
	p := sp.Sub(r.Min)
	if !p.In(src.Bounds()) {
		return nil
	}
	return d.SetPixel(model.FromColor(src.At(p.X, p.Y)))
}

// Halt implements conn.Resource. It turns the LED off.
func (d *Dev) Halt() error {
	return d.SetPixel(model.Black)
}

// Close releases the channel. It is safe to call more than once.
func (d *Dev) Close() error {
	if d.ch == nil {
		return nil
	}
	err := d.ch.Close()
	d.ch = nil
	return err
}

var _ display.Drawer = &Dev{}
