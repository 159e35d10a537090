package config

// Flight configuration
// Every tunable of the flight core and its defaults

import (
	"errors"
	"fmt"
	"math"
)

// Mode names accepted in Modes.Map. They match state.OperatingMode.String.
const (
	ModeCalibrate       = "calibrate"
	ModeFullManual      = "fullManual"
	ModeNormalControl   = "normalControl"
	ModeHover           = "hover"
	ModeLand            = "land"
	ModeFallOutOfTheSky = "fallOutOfTheSky"
)

// Estimator kinds
const (
	EstimatorComplementary = "complementary"
	EstimatorKalman        = "kalman"
)

// Config holds the flight configuration.
type Config struct {
	Loop        Loop        `yaml:"loop"`
	Failsafe    Failsafe    `yaml:"failsafe"`
	Motors      Motors      `yaml:"motors"`
	Gains       Gains       `yaml:"gains"`
	Limits      Limits      `yaml:"limits"`
	Estimator   Estimator   `yaml:"estimator"`
	Modes       Modes       `yaml:"modes"`
	Calibration Calibration `yaml:"calibration"`
	Radio       Radio       `yaml:"radio"`
}

// Loop holds the task rates in Hz.
type Loop struct {
	AcquisitionHz int `yaml:"acquisitionHz"`
	ControlHz     int `yaml:"controlHz"`
}

// Failsafe holds the consecutive-failure thresholds. A counter strictly above its threshold trips it.
type Failsafe struct {
	IMUFailure            uint16 `yaml:"imuFailure"`
	RadioTemporaryFailure uint16 `yaml:"radioTemporaryFailure"`
	RadioFullFailure      uint16 `yaml:"radioFullFailure"`
}

// Motors holds the ESC duty range and the idle cut.
type Motors struct {
	MinThrottle uint16  `yaml:"minThrottle"`
	MaxThrottle uint16  `yaml:"maxThrottle"`
	IdleEpsilon float64 `yaml:"idleEpsilon"`
}

// PID gains of one controller
type PID struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// Gains holds the controller gains per axis.
type Gains struct {
	Roll  PID `yaml:"roll"`
	Pitch PID `yaml:"pitch"`
	Yaw   PID `yaml:"yaw"`
	Hover PID `yaml:"hover"`
}

// Limits bounds setpoints and controller outputs.
type Limits struct {
	MaxTilt               float64 `yaml:"maxTilt"`  // degrees
	MaxTwist              float64 `yaml:"maxTwist"` // degrees/sec
	MaxCorrection         float64 `yaml:"maxCorrection"`
	MaxThrottleDifference float64 `yaml:"maxThrottleDifference"`
	IntegralLimit         float64 `yaml:"integralLimit"`
}

// Estimator selects and tunes the attitude estimator.
type Estimator struct {
	Kind              string  `yaml:"kind"`
	AccelWeight       float64 `yaml:"accelWeight"`
	MaxDisagreement   float64 `yaml:"maxDisagreement"`   // degrees
	MaxAccelDeviation float64 `yaml:"maxAccelDeviation"` // g
	ResyncAfter       int     `yaml:"resyncAfter"`       // 0 keeps rejecting a disagreeing accelerometer
	QAngle            float64 `yaml:"qAngle"`
	QBias             float64 `yaml:"qBias"`
	RMeasure          float64 `yaml:"rMeasure"`
}

// Modes maps the mode switch ordinal to an operating mode name.
type Modes struct {
	Map               map[uint8]string `yaml:"map"`
	HoverAuxThreshold float64          `yaml:"hoverAuxThreshold"` // 0 disables the aux override
}

// Calibration holds the boot calibration settings.
type Calibration struct {
	Samples int `yaml:"samples"`
}

// Radio selects the receiver protocol.
type Radio struct {
	Protocol string `yaml:"protocol"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Loop: Loop{
			AcquisitionHz: 1000,
			ControlHz:     500,
		},
		Failsafe: Failsafe{
			IMUFailure:            100,
			RadioTemporaryFailure: 100,
			RadioFullFailure:      2000,
		},
		Motors: Motors{
			MinThrottle: 0x6666,
			MaxThrottle: 0xCCCC,
			IdleEpsilon: 0.05,
		},
		Gains: Gains{
			Roll:  PID{Kp: 0.004, Kd: 0.0008},
			Pitch: PID{Kp: 0.004, Kd: 0.0008},
			Yaw:   PID{Kp: 0.002},
			Hover: PID{Kp: 0.2, Ki: 0.05},
		},
		Limits: Limits{
			MaxTilt:               20,
			MaxTwist:              100,
			MaxCorrection:         0.3,
			MaxThrottleDifference: 0.1,
			IntegralLimit:         0.2,
		},
		Estimator: Estimator{
			Kind:              EstimatorComplementary,
			AccelWeight:       0.02,
			MaxDisagreement:   15,
			MaxAccelDeviation: 0.25,
			QAngle:            0.001,
			QBias:             0.003,
			RMeasure:          0.03,
		},
		Modes: Modes{
			Map: map[uint8]string{
				0: ModeFallOutOfTheSky,
				1: ModeNormalControl,
				2: ModeFullManual,
			},
			HoverAuxThreshold: 0.75,
		},
		Calibration: Calibration{
			Samples: 1000,
		},
		Radio: Radio{
			Protocol: "ibus",
		},
	}
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.Loop.AcquisitionHz <= 0 {
		errs = append(errs, fmt.Errorf("loop.acquisitionHz must be positive, got %d", c.Loop.AcquisitionHz))
	}
	if c.Loop.ControlHz <= 0 {
		errs = append(errs, fmt.Errorf("loop.controlHz must be positive, got %d", c.Loop.ControlHz))
	}
	// the failure counters saturate at math.MaxUint16 and must be able to exceed the threshold
	if c.Failsafe.IMUFailure == math.MaxUint16 {
		errs = append(errs, fmt.Errorf("failsafe.imuFailure must be below %d", math.MaxUint16))
	}
	if c.Failsafe.RadioFullFailure == math.MaxUint16 {
		errs = append(errs, fmt.Errorf("failsafe.radioFullFailure must be below %d", math.MaxUint16))
	}
	if c.Failsafe.RadioTemporaryFailure > c.Failsafe.RadioFullFailure {
		errs = append(errs, errors.New("failsafe.radioTemporaryFailure must not exceed failsafe.radioFullFailure"))
	}
	if c.Motors.MinThrottle >= c.Motors.MaxThrottle {
		errs = append(errs, fmt.Errorf("motors.minThrottle %#x must be below motors.maxThrottle %#x", c.Motors.MinThrottle, c.Motors.MaxThrottle))
	}
	if c.Motors.IdleEpsilon < 0 || c.Motors.IdleEpsilon >= 1 {
		errs = append(errs, fmt.Errorf("motors.idleEpsilon must be in [0, 1), got %v", c.Motors.IdleEpsilon))
	}
	if c.Limits.MaxTilt <= 0 || c.Limits.MaxTilt >= 90 {
		errs = append(errs, fmt.Errorf("limits.maxTilt must be in (0, 90), got %v", c.Limits.MaxTilt))
	}
	if c.Limits.MaxTwist <= 0 {
		errs = append(errs, fmt.Errorf("limits.maxTwist must be positive, got %v", c.Limits.MaxTwist))
	}
	if c.Limits.MaxThrottleDifference < 0 || c.Limits.MaxThrottleDifference > 1 {
		errs = append(errs, fmt.Errorf("limits.maxThrottleDifference must be in [0, 1], got %v", c.Limits.MaxThrottleDifference))
	}

	switch c.Estimator.Kind {
	case EstimatorComplementary:
		if c.Estimator.AccelWeight < 0 || c.Estimator.AccelWeight > 1 {
			errs = append(errs, fmt.Errorf("estimator.accelWeight must be in [0, 1], got %v", c.Estimator.AccelWeight))
		}
		if c.Estimator.ResyncAfter < 0 {
			errs = append(errs, fmt.Errorf("estimator.resyncAfter must not be negative, got %d", c.Estimator.ResyncAfter))
		}
	case EstimatorKalman:
		if c.Estimator.RMeasure <= 0 {
			errs = append(errs, fmt.Errorf("estimator.rMeasure must be positive, got %v", c.Estimator.RMeasure))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown estimator kind %q", c.Estimator.Kind))
	}

	for ordinal, name := range c.Modes.Map {
		if !knownMode(name) {
			errs = append(errs, fmt.Errorf("modes.map[%d]: unknown mode %q", ordinal, name))
		}
	}
	if c.Calibration.Samples <= 0 {
		errs = append(errs, fmt.Errorf("calibration.samples must be positive, got %d", c.Calibration.Samples))
	}

	return errors.Join(errs...)
}

func knownMode(name string) bool {
	switch name {
	case ModeCalibrate, ModeFullManual, ModeNormalControl, ModeHover, ModeLand, ModeFallOutOfTheSky:
		return true
	}
	return false
}
