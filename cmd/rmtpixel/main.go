package main

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/rmtpixel/internal/config"
	"github.com/coreman2200/rmtpixel/output"
)

func main() {
	// ---- Flags (override config.yaml when set) ----
	var (
		configPath = flag.String("config", "rmtpixel.yaml", "path to the YAML config")
		driver     = flag.String("driver", "", "output: stream | spi | nrzled | console")
		pin        = flag.String("pin", "", "data pin for the stream driver (e.g. GPIO18)")
		interval   = flag.Duration("interval", 0, "time between frames")
		logLevel   = flag.String("log-level", "", "trace | debug | info | warn | error")
		strict     = flag.Bool("strict", false, "fail when bit timing is outside tolerance")
		fallback   = flag.Bool("fallback", false, "print at the console when the LED cannot be opened")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", *configPath).Msg("no config file; using defaults")
		cfg = config.Default()
	case err != nil:
		log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *pin != "" {
		cfg.Pin = *pin
	}
	if *interval > 0 {
		cfg.Interval = *interval
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.Strict = cfg.Strict || *strict
	cfg.Fallback = cfg.Fallback || *fallback
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level; using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	// ---- Hardware ----
	if _, err := host.Init(); err != nil {
		log.Fatal().Err(err).Msg("periph host init failed")
	}
	d, err := output.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Driver).Msg("output init failed")
	}
	r := output.NewRenderer(d)

	// ---- Run until SIGINT/SIGTERM ----
	l := output.NewLooper(r, cfg, nil)
	runErr := l.Start()
	if err := r.Close(); err != nil {
		log.Warn().Err(err).Msg("output close failed")
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Int("frames", l.Frames()).Msg("led loop failed")
	}
	log.Info().Int("frames", l.Frames()).Msg("shut down")
}
