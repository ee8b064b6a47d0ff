package rmt

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Raster expands items into one bit per tick, MSB first, and appends
// latch ticks at the idle level. dst is reused when large enough. It
// returns the packed bytes and the number of meaningful bits; padding
// bits in the last byte are at the idle level.
func Raster(dst []byte, items []Item, idle gpio.Level, latch int) ([]byte, int) {
	if latch < 0 {
		latch = 0
	}
	n := latch
	for _, it := range items {
		if it.High.Ticks == 0 {
			break
		}
		n += int(it.High.Ticks)
		if it.Low.Ticks == 0 {
			break
		}
		n += int(it.Low.Ticks)
	}
	size := (n + 7) / 8
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	fill := byte(0)
	if idle == gpio.High {
		fill = 0xFF
	}
	for i := range dst {
		dst[i] = fill
	}

	w := bitWriter{buf: dst}
loop:
	for _, it := range items {
		for _, p := range [2]Pulse{it.High, it.Low} {
			if p.Ticks == 0 {
				break loop
			}
			w.repeat(p.Level, int(p.Ticks))
		}
	}
	w.repeat(idle, latch)
	return dst, w.n
}

type bitWriter struct {
	buf []byte
	n   int
}

func (w *bitWriter) repeat(l gpio.Level, count int) {
	for i := 0; i < count; i++ {
		mask := byte(0x80) >> uint(w.n%8)
		if l == gpio.High {
			w.buf[w.n/8] |= mask
		} else {
			w.buf[w.n/8] &^= mask
		}
		w.n++
	}
}

// latchTicks converts the configured latch duration into ticks at f.
func latchTicks(f physic.Frequency, cfg *TxConfig) (int, error) {
	if l := cfg.latch(); l > MaxLatch {
		return 0, fmt.Errorf("%w: latch %s above %s", ErrDurationRange, l, MaxLatch)
	}
	t, err := Ticks(f, cfg.latch())
	if err != nil {
		return 0, err
	}
	return int(t), nil
}
