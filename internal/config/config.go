package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/coreman2200/rmtpixel/model"
	"github.com/coreman2200/rmtpixel/rmt"
	"gopkg.in/yaml.v3"
)

const (
	DriverStream  = "stream"
	DriverSPI     = "spi"
	DriverNRZLED  = "nrzled"
	DriverConsole = "console"
)

// MaxBaseHz keeps base clocks well inside physic.Frequency's range.
const MaxBaseHz = 1_000_000_000

type SPI struct {
	Dev    string `yaml:"dev"`     // spireg name, "" for the first port
	BaseHz int64  `yaml:"base_hz"` // clock before the divider
}

type Stream struct {
	BaseHz int64 `yaml:"base_hz"`
}

type Config struct {
	Driver       string        `yaml:"driver"` // "stream" | "spi" | "nrzled" | "console"
	Pin          string        `yaml:"pin"`    // gpioreg name, e.g. GPIO18
	ClockDivider uint8         `yaml:"clock_divider"`
	Strict       bool          `yaml:"strict"`
	Latch        time.Duration `yaml:"latch"`

	// Fallback draws at the console when the hardware cannot be opened.
	Fallback bool `yaml:"fallback"`

	SPI    SPI    `yaml:"spi,omitempty"`
	Stream Stream `yaml:"stream,omitempty"`

	Initial  model.Color   `yaml:"initial"`
	Sequence []model.Color `yaml:"sequence"`
	Interval time.Duration `yaml:"interval"`
	Retries  int           `yaml:"retries"`

	LogLevel string `yaml:"log_level"`
}

// Default blinks green every 500ms after a dim red boot frame.
func Default() *Config {
	return &Config{
		Driver:       DriverStream,
		Pin:          "GPIO18",
		ClockDivider: 2,
		Latch:        300 * time.Microsecond,
		SPI:          SPI{BaseHz: 6_400_000},
		Stream:       Stream{BaseHz: 6_400_000},
		Initial:      model.NewColor(50, 0, 0),
		Sequence:     []model.Color{model.NewColor(0, 50, 0), model.Black},
		Interval:     500 * time.Millisecond,
		LogLevel:     "info",
	}
}

// Load reads path on top of Default so omitted keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Driver {
	case DriverStream, DriverSPI, DriverNRZLED, DriverConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.Driver == DriverStream && c.Pin == "" {
		errs = append(errs, errors.New("stream driver needs a pin"))
	}
	if c.ClockDivider == 0 {
		errs = append(errs, errors.New("clock_divider must be at least 1"))
	}
	if c.Stream.BaseHz <= 0 || c.SPI.BaseHz <= 0 {
		errs = append(errs, errors.New("base_hz must be positive"))
	}
	if c.Stream.BaseHz > MaxBaseHz || c.SPI.BaseHz > MaxBaseHz {
		errs = append(errs, fmt.Errorf("base_hz must be at most %d", MaxBaseHz))
	}
	if c.Latch < 0 || c.Latch > rmt.MaxLatch {
		errs = append(errs, fmt.Errorf("latch must be between 0 and %s", rmt.MaxLatch))
	}
	if len(c.Sequence) == 0 {
		errs = append(errs, errors.New("sequence is empty"))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.Retries < 0 {
		errs = append(errs, errors.New("retries must not be negative"))
	}
	return errors.Join(errs...)
}
