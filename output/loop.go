package output

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreman2200/rmtpixel/internal/config"
	"github.com/coreman2200/rmtpixel/model"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Looper shows an initial color, then cycles through a sequence of colors
// at a fixed interval.
type Looper struct {
	renderer *Renderer
	clock    clockwork.Clock
	initial  model.Color
	sequence []model.Color
	interval time.Duration
	retries  int
	frames   int
}

func NewLooper(r *Renderer, cfg *config.Config, clock clockwork.Clock) *Looper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Looper{
		renderer: r,
		clock:    clock,
		initial:  cfg.Initial,
		sequence: append([]model.Color(nil), cfg.Sequence...),
		interval: cfg.Interval,
		retries:  cfg.Retries,
	}
}

// Frames is the number of frames shown so far.
func (l *Looper) Frames() int {
	return l.frames
}

// Run blocks until ctx is done or a frame fails after all retries.
func (l *Looper) Run(ctx context.Context) error {
	if err := l.show(l.initial); err != nil {
		return err
	}
	if len(l.sequence) == 0 {
		<-ctx.Done()
		return nil
	}
	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if err := l.show(l.sequence[i%len(l.sequence)]); err != nil {
				return err
			}
		}
	}
}

// Start runs the loop until SIGINT or SIGTERM.
func (l *Looper) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Stringer("output", l.renderer).Dur("interval", l.interval).Msg("loop starting")
	err := l.Run(ctx)
	if ctx.Err() != nil {
		log.Info().Int("frames", l.frames).Msg("signal received, stopping")
	}
	return err
}

func (l *Looper) show(c model.Color) error {
	var err error
	for attempt := 0; attempt <= l.retries; attempt++ {
		if err = l.renderer.Render(c); err == nil {
			l.frames++
			log.Debug().Stringer("color", c).Int("frame", l.frames).Msg("frame")
			return nil
		}
		if attempt < l.retries {
			log.Warn().Err(err).Stringer("color", c).Int("attempt", attempt+1).Msg("frame failed, retrying")
		}
	}
	return fmt.Errorf("frame %d (%s): %w", l.frames+1, c, err)
}
