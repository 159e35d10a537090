package flight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/control"
	"github.com/dezash123/drone/internal/estimator"
	"github.com/dezash123/drone/internal/imu"
	"github.com/dezash123/drone/internal/state"
)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) func(f *FlightSystem) {
	return func(f *FlightSystem) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithObserver adds an observer of every control frame.
func WithObserver(o Observer) func(f *FlightSystem) {
	return func(f *FlightSystem) {
		f.observers = append(f.observers, o)
	}
}

// FlightSystem calibrates the IMU and runs the acquisition and control tasks.
type FlightSystem struct {
	cfg       config.Config
	policy    Policy
	sensor    imu.Sensor
	radio     Radio
	motors    Motors
	clock     Clock
	observers []Observer
	logger    *slog.Logger

	calibration imu.Calibration
	guard       *state.Guard
	acquisition *Acquisition
	control     *Control
}

// New validates cfg and creates a FlightSystem. Boot must be called before Run.
func New(cfg config.Config, sensor imu.Sensor, rx Radio, motors Motors, clock Clock, options ...func(f *FlightSystem)) (*FlightSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	policy, err := NewPolicy(cfg)
	if err != nil {
		return nil, err
	}

	f := FlightSystem{
		cfg:    cfg,
		policy: policy,
		sensor: sensor,
		radio:  rx,
		motors: motors,
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&f)
	}

	return &f, nil
}

// Boot holds the motors at zero thrust, calibrates the resting IMU and prepares both tasks.
// Any sensor failure here is a fatal *imu.SetupFault.
func (f *FlightSystem) Boot(ctx context.Context) error {
	for i := 0; i < control.Motors; i++ {
		f.motors.SetDuty(i, f.cfg.Motors.MinThrottle)
	}

	samples := f.cfg.Calibration.Samples
	f.logger.Info("calibrating IMU, keep the drone still", "samples", samples)
	cal, err := imu.Calibrate(f.sensor, samples, func(done int) {
		if done%(samples/10+1) == 0 {
			f.logger.Debug("calibrating", "done", done)
		}
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.calibration = cal
	f.logger.Info("calibration complete",
		"gravity", cal.Gravity,
		"gyroBiasX", cal.GyroBias[0],
		"gyroBiasY", cal.GyroBias[1],
		"gyroBiasZ", cal.GyroBias[2],
	)

	est, err := estimator.New(f.cfg.Estimator, cal.Gravity)
	if err != nil {
		return err
	}
	initial := state.DroneState{Mode: state.FallOutOfTheSky}
	if level, ok := estimator.AccelAngles(cal.Level); ok {
		est.Seed(level)
		initial.TrueAngle = level
	}

	sensor := imu.NewMonotonic(imu.NewCalibrated(f.sensor, cal))
	f.guard = state.NewGuard(initial)
	f.acquisition = NewAcquisition(sensor, f.radio, est, f.policy, f.guard, f.logger)
	f.control = NewControl(f.guard, control.NewLaw(f.cfg, cal.Gravity), f.motors, f.clock, f.cfg.Motors, f.observers, f.logger)
	return nil
}

// Run starts the acquisition and control tasks and blocks until ctx is done.
// The motors are left at zero thrust.
func (f *FlightSystem) Run(ctx context.Context) error {
	if f.guard == nil {
		return errors.New("flight system not booted")
	}

	f.logger.Info("flight loops started",
		"acquisitionHz", f.cfg.Loop.AcquisitionHz,
		"controlHz", f.cfg.Loop.ControlHz,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		every(ctx, f.cfg.Loop.AcquisitionHz, func() { f.acquisition.Step() })
	}()
	go func() {
		defer wg.Done()
		every(ctx, f.cfg.Loop.ControlHz, func() { f.control.Step() })
	}()
	wg.Wait()

	f.control.Stop()
	f.logger.Info("flight loops stopped")
	return nil
}

// State returns the current shared snapshot.
func (f *FlightSystem) State() state.DroneState {
	if f.guard == nil {
		return state.DroneState{Mode: state.FallOutOfTheSky}
	}
	return f.guard.Load()
}

// Calibration returns the boot calibration.
func (f *FlightSystem) Calibration() imu.Calibration {
	return f.calibration
}

// Acquisition returns the acquisition task, for stepping it without Run.
func (f *FlightSystem) Acquisition() *Acquisition { return f.acquisition }

// Control returns the control task, for stepping it without Run.
func (f *FlightSystem) Control() *Control { return f.control }

// every calls fn at hz until ctx is done.
func every(ctx context.Context, hz int, fn func()) {
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
