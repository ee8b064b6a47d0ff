package model

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Bit offsets of each channel inside the packed wire value. WS2812 parts
// expect green first, then red, then blue.
const (
	GREEN_OFFSET uint8 = 0x10
	RED_OFFSET   uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

var errColorSyntax = errors.New("model: invalid color")

// Color is a single 8 bit per channel RGB value. Every combination is a
// valid pixel.
type Color struct {
	R, G, B uint8
}

// Black turns the pixel off.
var Black = Color{}

func NewColor(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// GRB packs the color in wire order: G<<16 | R<<8 | B.
func (c Color) GRB() uint32 {
	return uint32(c.G)<<GREEN_OFFSET | uint32(c.R)<<RED_OFFSET | uint32(c.B)<<BLUE_OFFSET
}

// FromGRB is the inverse of Color.GRB. Bits above 23 are ignored.
func FromGRB(v uint32) Color {
	return Color{
		R: getcolor(v, RED_OFFSET),
		G: getcolor(v, GREEN_OFFSET),
		B: getcolor(v, BLUE_OFFSET),
	}
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// RGBA implements color.Color so a Color can be drawn directly.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// FromColor converts any color.Color, dropping alpha after
// un-premultiplying it.
func FromColor(c color.Color) Color {
	if v, ok := c.(Color); ok {
		return v
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor accepts "#rrggbb", "rrggbb" or "r,g,b" with decimal channels.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return Color{}, fmt.Errorf("%w %q", errColorSyntax, s)
		}
		var ch [3]uint8
		for i, p := range parts {
			v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return Color{}, fmt.Errorf("%w %q: %v", errColorSyntax, s, err)
			}
			ch[i] = uint8(v)
		}
		return NewColor(ch[0], ch[1], ch[2]), nil
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("%w %q", errColorSyntax, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w %q: %v", errColorSyntax, s, err)
	}
	return NewColor(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// MarshalText renders the color as "#rrggbb" so configs round-trip.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
