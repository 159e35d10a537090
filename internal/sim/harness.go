package sim

import (
	"context"
	"time"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/flight"
	"github.com/dezash123/drone/internal/radio"
)

// Setup customizes a Harness.
type Setup struct {
	Params Params
	Sensor []SensorOption
	// Radio replaces the simulated transmitter, for flying the simulation from a real receiver.
	Radio flight.Radio
	// Start is the initial clock value.
	Start  uint32
	Flight []func(f *flight.FlightSystem)
}

// Harness steps the plant and both flight tasks in lockstep on a virtual clock, at the
// acquisition rate with a control step every AcquisitionHz/ControlHz steps.
type Harness struct {
	Clock       *Clock
	Quad        *Quad
	Sensor      *Sensor
	Transmitter *Transmitter
	System      *flight.FlightSystem

	step         time.Duration
	controlEvery uint64
	steps        uint64
}

// NewHarness builds the simulated airframe and a flight system flying it.
func NewHarness(cfg config.Config, setup Setup) (*Harness, error) {
	h := Harness{
		Clock: NewClock(setup.Start),
		step:  time.Second / time.Duration(max(cfg.Loop.AcquisitionHz, 1)),
	}
	h.controlEvery = uint64(max(cfg.Loop.AcquisitionHz/max(cfg.Loop.ControlHz, 1), 1))

	h.Quad = NewQuad(setup.Params, cfg.Motors)
	h.Sensor = NewSensor(h.Quad, h.Clock, setup.Sensor...)
	h.Transmitter = NewTransmitter(h.Clock, DefaultFramePeriod)

	rx := setup.Radio
	if rx == nil {
		rx = radio.NewReceiver(h.Transmitter, radio.NewIBusParser())
	}

	fs, err := flight.New(cfg, h.Sensor, rx, h.Quad, h.Clock, setup.Flight...)
	if err != nil {
		return nil, err
	}
	h.System = fs
	return &h, nil
}

// Boot calibrates on the ground.
func (h *Harness) Boot(ctx context.Context) error {
	return h.System.Boot(ctx)
}

// StepDuration is the simulated time covered by one Step.
func (h *Harness) StepDuration() time.Duration {
	return h.step
}

// Elapsed is the simulated time since the harness was created.
func (h *Harness) Elapsed() time.Duration {
	return time.Duration(h.steps) * h.step
}

// Step advances the simulation by one acquisition period.
func (h *Harness) Step() {
	h.Clock.Advance(h.step)
	h.Quad.Step(h.step.Seconds())
	h.System.Acquisition().Step()
	if h.steps%h.controlEvery == 0 {
		h.System.Control().Step()
	}
	h.steps++
}

// RunFor steps the simulation over d of simulated time.
func (h *Harness) RunFor(d time.Duration) {
	for end := h.Elapsed() + d; h.Elapsed() < end; {
		h.Step()
	}
}
