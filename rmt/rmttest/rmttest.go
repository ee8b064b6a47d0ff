// Package rmttest is meant to be used to test drivers over a fake pulse
// train channel.
package rmttest

import (
	"encoding/binary"
	"sync"

	"github.com/coreman2200/rmtpixel/rmt"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// DefaultFreq is the counter clock reported when Freq is not set: an
// 80MHz APB clock divided by 2.
const DefaultFreq = 40 * physic.MegaHertz

// Record implements rmt.Channel and records every transmission.
//
// The zero value is ready to use.
type Record struct {
	sync.Mutex
	Freq physic.Frequency

	// ConfigureErr and ClockErr are returned by Configure and CounterClock.
	ConfigureErr error
	ClockErr     error
	// TxErr, when set, is called with the zero based index of each
	// transmission. A non-nil error fails it without recording.
	TxErr func(n int) error

	Pin     gpio.PinOut
	Config  rmt.TxConfig
	Signals [][]rmt.Item
	Closed  bool

	configured bool
	attempts   int
}

func (r *Record) String() string {
	return "record"
}

func (r *Record) Configure(p gpio.PinOut, cfg rmt.TxConfig) error {
	r.Lock()
	defer r.Unlock()
	switch {
	case r.Closed:
		return rmt.ErrClosed
	case r.configured:
		return rmt.ErrBusy
	case cfg.ClockDivider == 0:
		return rmt.ErrDivider
	case r.ConfigureErr != nil:
		return r.ConfigureErr
	}
	r.Pin, r.Config, r.configured = p, cfg, true
	return nil
}

func (r *Record) CounterClock() (physic.Frequency, error) {
	r.Lock()
	defer r.Unlock()
	if err := r.ready(); err != nil {
		return 0, err
	}
	if r.ClockErr != nil {
		return 0, r.ClockErr
	}
	if r.Freq == 0 {
		return DefaultFreq, nil
	}
	return r.Freq, nil
}

func (r *Record) StartBlocking(items []rmt.Item) error {
	r.Lock()
	defer r.Unlock()
	if err := r.ready(); err != nil {
		return err
	}
	n := r.attempts
	r.attempts++
	if r.TxErr != nil {
		if err := r.TxErr(n); err != nil {
			return err
		}
	}
	r.Signals = append(r.Signals, append([]rmt.Item(nil), items...))
	return nil
}

func (r *Record) Close() error {
	r.Lock()
	defer r.Unlock()
	if r.Closed {
		return rmt.ErrClosed
	}
	r.Closed = true
	return nil
}

func (r *Record) ready() error {
	if r.Closed {
		return rmt.ErrClosed
	}
	if !r.configured {
		return rmt.ErrNotConfigured
	}
	return nil
}

// Playback implements rmt.Channel and plays back a recorded sequence of
// transmissions. Each transmission is encoded as little endian item words
// and compared against the next conntest.IO.W.
type Playback struct {
	conntest.Playback
	Freq physic.Frequency

	configured bool
	closed     bool
}

func (p *Playback) String() string {
	return "playback"
}

func (p *Playback) Configure(pin gpio.PinOut, cfg rmt.TxConfig) error {
	if p.closed {
		return rmt.ErrClosed
	}
	if p.configured {
		return rmt.ErrBusy
	}
	if cfg.ClockDivider == 0 {
		return rmt.ErrDivider
	}
	p.configured = true
	return nil
}

func (p *Playback) CounterClock() (physic.Frequency, error) {
	if !p.configured {
		return 0, rmt.ErrNotConfigured
	}
	if p.Freq == 0 {
		return DefaultFreq, nil
	}
	return p.Freq, nil
}

func (p *Playback) StartBlocking(items []rmt.Item) error {
	if p.closed {
		return rmt.ErrClosed
	}
	if !p.configured {
		return rmt.ErrNotConfigured
	}
	return p.Playback.Tx(EncodeItems(items), nil)
}

// Close verifies that all the expected transmissions happened.
func (p *Playback) Close() error {
	if p.closed {
		return rmt.ErrClosed
	}
	p.closed = true
	return p.Playback.Close()
}

// EncodeItems returns the little endian memory image of items.
func EncodeItems(items []rmt.Item) []byte {
	b := make([]byte, 4*len(items))
	for i, it := range items {
		binary.LittleEndian.PutUint32(b[4*i:], it.Encode())
	}
	return b
}

var _ rmt.Channel = &Record{}
var _ rmt.Channel = &Playback{}
