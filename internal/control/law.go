package control

import (
	"time"

	"go.einride.tech/pid"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/state"
)

// Law turns the shared snapshot into motor speeds. It owns the controller memory and
// must only be used from the control task.
type Law struct {
	limits config.Limits
	idle   float64

	roll  *PID // roll angle
	pitch *PID // pitch angle
	yaw   *PID // yaw rate

	// Hover holds vertical acceleration at the calibrated gravity on top of the throttle
	// latched when the mode was entered.
	hover         pid.Controller
	hoverThrottle float64
	hovering      bool
	gravity       float64
}

// NewLaw creates the axis controllers from cfg. gravity is the calibrated resting magnitude in g.
func NewLaw(cfg config.Config, gravity float64) *Law {
	g := cfg.Gains
	return &Law{
		limits: cfg.Limits,
		idle:   cfg.Motors.IdleEpsilon,
		roll:   NewPID(Gains{Kp: g.Roll.Kp, Ki: g.Roll.Ki, Kd: g.Roll.Kd}, cfg.Limits.IntegralLimit),
		pitch:  NewPID(Gains{Kp: g.Pitch.Kp, Ki: g.Pitch.Ki, Kd: g.Pitch.Kd}, cfg.Limits.IntegralLimit),
		yaw:    NewPID(Gains{Kp: g.Yaw.Kp, Ki: g.Yaw.Ki, Kd: g.Yaw.Kd}, cfg.Limits.IntegralLimit),
		hover: pid.Controller{
			Config: pid.ControllerConfig{
				ProportionalGain: g.Hover.Kp,
				IntegralGain:     g.Hover.Ki,
				DerivativeGain:   g.Hover.Kd,
			},
		},
		gravity: gravity,
	}
}

// Normal tracks the stick deflections as tilt angle and yaw rate setpoints.
func (l *Law) Normal(s state.DroneState, dt float64) Speeds {
	l.hovering = false
	cmd := s.Command
	return l.stabilize(s, cmd.X*l.limits.MaxTilt, cmd.Y*l.limits.MaxTilt, cmd.Twist*l.limits.MaxTwist, cmd.Z, dt)
}

// Hover holds the drone level with zero yaw rate. Throttle is latched on entry and trimmed
// to keep the vertical acceleration at gravity.
func (l *Law) Hover(s state.DroneState, dt float64) Speeds {
	if !l.hovering {
		l.hovering = true
		l.hoverThrottle = s.Command.Z
		l.hover.State = pid.ControllerState{}
	}

	if dt > 0 {
		l.hover.Update(pid.ControllerInput{
			ReferenceSignal:  l.gravity,
			ActualSignal:     s.IMU.Acceleration.Vector[2],
			SamplingInterval: time.Duration(dt * float64(time.Second)),
		})
	}
	trim := Constrain(l.hover.State.ControlSignal, -l.limits.MaxCorrection, l.limits.MaxCorrection)
	throttle := Constrain(l.hoverThrottle+trim, 0, 1)

	return l.stabilize(s, 0, 0, 0, throttle, dt)
}

// Manual mixes the sticks directly, scaled by the maximum throttle difference.
// The stabilizing controllers are reset so re-entering a stabilized mode starts clean.
func (l *Law) Manual(s state.DroneState) Speeds {
	l.Reset()
	cmd := s.Command
	k := l.limits.MaxThrottleDifference
	return Saturate(Mix(cmd.Z, cmd.X*k, cmd.Y*k, cmd.Twist*k), l.idle)
}

// Calibrate drives all four motors at the raw throttle, for ESC calibration and motor tests.
func (l *Law) Calibrate(s state.DroneState) Speeds {
	l.Reset()
	z := Constrain(s.Command.Z, 0, 1)
	return Speeds{z, z, z, z}
}

// Shutdown returns zero thrust and clears all controller memory.
func (l *Law) Shutdown() Speeds {
	l.Reset()
	return Speeds{}
}

// Reset clears all controller memory.
func (l *Law) Reset() {
	l.roll.Reset()
	l.pitch.Reset()
	l.yaw.Reset()
	l.hover.State = pid.ControllerState{}
	l.hovering = false
}

func (l *Law) stabilize(s state.DroneState, roll, pitch, yawRate, throttle, dt float64) Speeds {
	limit := l.limits.MaxCorrection
	x := Constrain(l.roll.Next(roll-s.TrueAngle.Roll, dt), -limit, limit)
	y := Constrain(l.pitch.Next(pitch-s.TrueAngle.Pitch, dt), -limit, limit)
	z := Constrain(l.yaw.Next(yawRate-s.IMU.AngularVelocity.Vector[2], dt), -limit, limit)

	return Saturate(Mix(throttle, x, y, z), l.idle)
}
