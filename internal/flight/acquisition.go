package flight

import (
	"context"
	"log/slog"

	"github.com/dezash123/drone/internal/estimator"
	"github.com/dezash123/drone/internal/imu"
	"github.com/dezash123/drone/internal/radio"
	"github.com/dezash123/drone/internal/state"
)

const ticksToSeconds = 1e-6

// Acquisition polls the sensors, runs the estimator and the mode policy, and publishes the
// snapshot. It is the only writer of the shared state.
type Acquisition struct {
	sensor    imu.Sensor
	radio     Radio
	estimator estimator.Estimator
	policy    Policy
	guard     *state.Guard
	logger    *slog.Logger

	working   state.DroneState
	lastGyro  uint32
	haveGyro  bool
	lastFault radio.Fault
	imuDown   bool
}

// NewAcquisition creates the acquisition task starting from the state held by guard.
func NewAcquisition(sensor imu.Sensor, rx Radio, est estimator.Estimator, policy Policy, guard *state.Guard, logger *slog.Logger) *Acquisition {
	return &Acquisition{
		sensor:    sensor,
		radio:     rx,
		estimator: est,
		policy:    policy,
		guard:     guard,
		logger:    logger,
		working:   guard.Load(),
	}
}

// Step runs one acquisition cycle and returns the published snapshot.
func (a *Acquisition) Step() state.DroneState {
	s := &a.working

	sample, err := imu.ReadSample(a.sensor)
	fresh := err == nil
	if err != nil {
		s.FailedIMU = bump(s.FailedIMU)
		if !a.imuDown {
			a.imuDown = true
			a.logger.Debug("IMU read failed", "err", err)
		}
	} else {
		s.FailedIMU = 0
		s.IMU = sample
		a.imuDown = false
	}

	cmd, err := a.radio.Read()
	fault := radio.Classify(err)
	if err != nil {
		s.FailedRadio = bump(s.FailedRadio)
		s.FreshRadio = false
		if fault != a.lastFault && fault != radio.FaultNoNewData {
			a.logger.Debug("radio read failed", "fault", fault, "err", err)
		}
	} else {
		s.FailedRadio = 0
		s.FreshRadio = true
		s.Command = cmd
	}
	a.lastFault = fault

	if fresh {
		gyro := sample.AngularVelocity
		var dt float64
		if a.haveGyro {
			dt = float64(imu.Since(gyro.Timestamp, a.lastGyro)) * ticksToSeconds
		}
		a.lastGyro, a.haveGyro = gyro.Timestamp, true
		s.TrueAngle = a.estimator.Push(sample.Acceleration.Vector, gyro.Vector, dt)
	}

	next := a.policy.Transition(s.Mode, s.FailedIMU, s.FailedRadio, s.Command, s.FreshRadio)
	if next != s.Mode {
		level := slog.LevelInfo
		if next.IsFault() {
			level = slog.LevelWarn
		}
		a.logger.Log(context.Background(), level, "mode changed",
			"from", s.Mode,
			"to", next,
			"failedIMU", s.FailedIMU,
			"failedRadio", s.FailedRadio,
		)
		s.Mode = next
	}

	s.Cycle++
	a.guard.Store(*s)
	return *s
}
