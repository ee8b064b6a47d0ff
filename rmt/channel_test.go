package rmt

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiostream"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
)

// streamPin is a gpiotest.Pin that records bit streams.
type streamPin struct {
	gpiotest.Pin
	streams []gpiostream.BitStream
	err     error
}

func (p *streamPin) StreamOut(s gpiostream.Stream) error {
	if p.err != nil {
		return p.err
	}
	b := s.(*gpiostream.BitStream)
	p.streams = append(p.streams, gpiostream.BitStream{
		Bits: append([]byte(nil), b.Bits...),
		Freq: b.Freq,
		LSBF: b.LSBF,
	})
	return nil
}

// 6.4MHz / 2: one tick is 312.5ns and 2.5µs is 8 ticks.
var testTx = TxConfig{ClockDivider: 2, Latch: 2500 * time.Nanosecond}

var testItems = []Item{
	{High: Pulse{Level: gpio.High, Ticks: 1}, Low: Pulse{Level: gpio.Low, Ticks: 3}},
}

func TestStreamChannel(t *testing.T) {
	p := &streamPin{Pin: gpiotest.Pin{N: "GPIO18"}}
	c := NewStreamChannel(6400 * physic.KiloHertz)
	assert.Equal(t, "stream", c.String())

	_, err := c.CounterClock()
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.StartBlocking(testItems), ErrNotConfigured)

	require.NoError(t, c.Configure(p, testTx))
	assert.Equal(t, "stream(GPIO18)", c.String())
	assert.ErrorIs(t, c.Configure(p, testTx), ErrBusy)

	f, err := c.CounterClock()
	require.NoError(t, err)
	assert.Equal(t, 3200*physic.KiloHertz, f)

	require.NoError(t, c.StartBlocking(testItems))
	require.Len(t, p.streams, 1)
	assert.Equal(t, []byte{0x80, 0x00}, p.streams[0].Bits)
	assert.Equal(t, 3200*physic.KiloHertz, p.streams[0].Freq)
	assert.False(t, p.streams[0].LSBF)

	r := ResetSignal()
	require.NoError(t, c.StartBlocking(r[:]))
	assert.Equal(t, []byte{0x00}, p.streams[1].Bits)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClosed)
	assert.ErrorIs(t, c.StartBlocking(testItems), ErrClosed)
	assert.ErrorIs(t, c.Configure(p, testTx), ErrClosed)
}

func TestStreamChannelIdleLevel(t *testing.T) {
	p := &streamPin{Pin: gpiotest.Pin{N: "GPIO18"}}
	c := NewStreamChannel(6400 * physic.KiloHertz)
	cfg := testTx
	cfg.IdleLevel = gpio.High
	require.NoError(t, c.Configure(p, cfg))
	assert.Equal(t, gpio.High, p.L)

	require.NoError(t, c.StartBlocking(testItems))
	assert.Equal(t, []byte{0x8F, 0xFF}, p.streams[0].Bits)
}

func TestStreamChannelErrors(t *testing.T) {
	c := NewStreamChannel(6400 * physic.KiloHertz)
	assert.ErrorIs(t, c.Configure(nil, testTx), ErrPin)
	assert.ErrorIs(t, c.Configure(&gpiotest.Pin{N: "GPIO4"}, testTx), ErrPin)

	p := &streamPin{Pin: gpiotest.Pin{N: "GPIO18"}}
	assert.ErrorIs(t, c.Configure(p, TxConfig{}), ErrDivider)
	assert.ErrorIs(t, NewStreamChannel(0).Configure(p, testTx), ErrInvalidFrequency)

	// A failed attempt does not claim the channel.
	require.NoError(t, c.Configure(p, testTx))

	boom := errors.New("dma busy")
	p.err = boom
	assert.ErrorIs(t, c.StartBlocking(testItems), boom)
}

func TestStreamChannelDefaultLatch(t *testing.T) {
	p := &streamPin{Pin: gpiotest.Pin{N: "GPIO18"}}
	c := NewStreamChannel(6400 * physic.KiloHertz)
	require.NoError(t, c.Configure(p, TxConfig{ClockDivider: 2}))
	require.NoError(t, c.StartBlocking(testItems))
	// 4 ticks of data plus 300µs (960 ticks) of latch.
	assert.Len(t, p.streams[0].Bits, (4+960+7)/8)
}

func TestSPIChannel(t *testing.T) {
	buf := bytes.Buffer{}
	port := spitest.NewRecordRaw(&buf)
	c := NewSPIChannel(port, 6400*physic.KiloHertz)
	assert.Equal(t, "spi(recordraw)", c.String())

	cfg := testTx
	cfg.IdleLevel = gpio.High
	assert.ErrorIs(t, c.Configure(nil, cfg), ErrPin)

	require.NoError(t, c.Configure(nil, testTx))
	f, err := c.CounterClock()
	require.NoError(t, err)
	assert.Equal(t, 3200*physic.KiloHertz, f)

	require.NoError(t, c.StartBlocking(testItems))
	assert.Equal(t, []byte{0x80, 0x00}, buf.Bytes())

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.StartBlocking(testItems), ErrClosed)
}

func TestStreamChannelLatchTooLong(t *testing.T) {
	p := &streamPin{Pin: gpiotest.Pin{N: "GPIO18"}}
	c := NewStreamChannel(6400 * physic.KiloHertz)
	require.NoError(t, c.Configure(p, TxConfig{ClockDivider: 2, Latch: time.Hour}))
	reset := ResetSignal()
	assert.ErrorIs(t, c.StartBlocking(reset[:]), ErrDurationRange)
	assert.Empty(t, p.streams)
}

func TestRasterNegativeLatch(t *testing.T) {
	b, n := Raster(nil, testItems, gpio.Low, -8)
	assert.Equal(t, []byte{0x80}, b)
	assert.Equal(t, 4, n)
}
