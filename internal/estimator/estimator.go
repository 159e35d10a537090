package estimator

import (
	"fmt"
	"math"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/imu"
)

// Angles is a tilt estimate in degrees.
type Angles struct {
	Roll  float64
	Pitch float64
}

// Estimator fuses gyro and accelerometer readings into a tilt estimate.
type Estimator interface {
	// Push advances the estimate by dt seconds. acceleration is in g, angularVelocity in degrees/sec.
	Push(acceleration, angularVelocity imu.Vector3, dt float64) Angles
	// Seed resets the estimate to a known attitude.
	Seed(a Angles)
}

// New returns the estimator selected by cfg.Kind. gravity is the calibrated resting magnitude in g.
func New(cfg config.Estimator, gravity float64) (Estimator, error) {
	switch cfg.Kind {
	case config.EstimatorComplementary, "":
		return NewComplementary(cfg, gravity), nil
	case config.EstimatorKalman:
		return NewKalman(cfg), nil
	default:
		return nil, fmt.Errorf("unknown estimator kind %q", cfg.Kind)
	}
}

// AccelAngles computes the tilt implied by the gravity vector:
// roll = atan2(ay, az), pitch = atan2(-ax, az), in degrees.
// ok is false when az is exactly zero and the angles are undefined.
func AccelAngles(acc imu.Vector3) (a Angles, ok bool) {
	if acc[2] == 0 {
		return Angles{}, false
	}
	return Angles{
		Roll:  degrees(math.Atan2(acc[1], acc[2])),
		Pitch: degrees(math.Atan2(-acc[0], acc[2])),
	}, true
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// distance is the Euclidean distance between two estimates.
func distance(a, b Angles) float64 {
	return math.Hypot(a.Roll-b.Roll, a.Pitch-b.Pitch)
}
