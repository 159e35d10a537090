package flight

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/control"
	"github.com/dezash123/drone/internal/state"
)

// Loop rate is reported once per window.
const rateWindowTicks = 5_000_000

// Control reads the snapshot, runs the control law for the current mode and drives the motors.
type Control struct {
	guard     *state.Guard
	law       *control.Law
	motors    Motors
	clock     Clock
	motorCfg  config.Motors
	observers []Observer
	logger    *slog.Logger

	last    uint32
	started bool

	frames      uint64
	windowStart uint32
}

// NewControl creates the control task.
func NewControl(guard *state.Guard, law *control.Law, motors Motors, clock Clock, motorCfg config.Motors, observers []Observer, logger *slog.Logger) *Control {
	return &Control{
		guard:     guard,
		law:       law,
		motors:    motors,
		clock:     clock,
		motorCfg:  motorCfg,
		observers: observers,
		logger:    logger,
	}
}

// Step runs one control cycle.
func (c *Control) Step() Frame {
	s := c.guard.Load()

	now := c.clock.Ticks()
	var dt float64
	if c.started {
		// unsigned subtraction stays correct across one counter wraparound
		dt = float64(now-c.last) * ticksToSeconds
	} else {
		c.started = true
		c.windowStart = now
	}
	c.last = now

	speeds := c.dispatch(s, dt)
	duties := control.ToDuties(speeds, c.motorCfg.MinThrottle, c.motorCfg.MaxThrottle)
	for i, d := range duties {
		c.motors.SetDuty(i, d)
	}

	f := Frame{State: s, DT: dt, Speeds: speeds, Duties: duties}
	for _, o := range c.observers {
		o.Observe(f)
	}

	c.reportRate(now)
	return f
}

func (c *Control) dispatch(s state.DroneState, dt float64) control.Speeds {
	switch s.Mode {
	case state.NormalControl:
		return c.law.Normal(s, dt)
	case state.Hover:
		return c.law.Hover(s, dt)
	case state.FullManual:
		return c.law.Manual(s)
	case state.Calibrate:
		return c.law.Calibrate(s)
	default:
		// Land and FallOutOfTheSky
		return c.law.Shutdown()
	}
}

// Stop commands zero thrust on every motor.
func (c *Control) Stop() {
	c.law.Reset()
	for i := 0; i < control.Motors; i++ {
		c.motors.SetDuty(i, c.motorCfg.MinThrottle)
	}
}

func (c *Control) reportRate(now uint32) {
	c.frames++
	elapsed := now - c.windowStart
	if elapsed < rateWindowTicks {
		return
	}
	rate := float64(c.frames) / (float64(elapsed) * ticksToSeconds)
	c.logger.Debug("control loop", "rate", humanize.SIWithDigits(rate, 1, "Hz"))
	c.frames = 0
	c.windowStart = now
}
