package ws2812

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// HardwareConfigError is returned by New when the channel cannot be
// configured or calibrated. No Dev is produced.
type HardwareConfigError struct {
	Op  string
	Err error
}

func (e *HardwareConfigError) Error() string {
	return "ws2812: " + e.Op + ": " + e.Err.Error()
}

func (e *HardwareConfigError) Unwrap() error {
	return e.Err
}

// TransmitError is returned when the channel rejects or fails a
// transmission. The LED state afterwards is unspecified.
type TransmitError struct {
	Op  string
	Err error
}

func (e *TransmitError) Error() string {
	return "ws2812: " + e.Op + ": " + e.Err.Error()
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}

type toleranceError struct {
	freq  physic.Frequency
	worst time.Duration
}

func (e *toleranceError) Error() string {
	return fmt.Sprintf("timing off by %s at %s, tolerance is %s", e.worst, e.freq, Tolerance)
}
