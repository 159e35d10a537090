package estimator

import (
	"math"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/imu"
)

// Complementary blends the integrated gyro rate with the accelerometer tilt.
// The accelerometer is only trusted near 1 g and within MaxDisagreement of the gyro estimate.
//
// Once the estimate has drifted more than MaxDisagreement from the true tilt, every
// accelerometer reading is rejected and the drift is never corrected. A positive ResyncAfter
// re-seeds from the accelerometer after that many consecutive rejections taken near 1 g.
type Complementary struct {
	accelWeight       float64
	maxDisagreement   float64
	maxAccelDeviation float64
	resyncAfter       int
	gravity           float64

	angles   Angles
	seeded   bool
	rejected int // consecutive disagreement rejections
}

// NewComplementary creates a complementary filter. Non-positive limits disable their check.
func NewComplementary(cfg config.Estimator, gravity float64) *Complementary {
	return &Complementary{
		accelWeight:       cfg.AccelWeight,
		maxDisagreement:   cfg.MaxDisagreement,
		maxAccelDeviation: cfg.MaxAccelDeviation,
		resyncAfter:       cfg.ResyncAfter,
		gravity:           gravity,
	}
}

func (c *Complementary) Seed(a Angles) {
	c.angles = a
	c.seeded = true
	c.rejected = 0
}

func (c *Complementary) Push(acceleration, angularVelocity imu.Vector3, dt float64) Angles {
	gyro := Angles{
		Roll:  c.angles.Roll + angularVelocity[0]*dt,
		Pitch: c.angles.Pitch + angularVelocity[1]*dt,
	}

	accel, ok := AccelAngles(acceleration)
	if !c.seeded {
		if ok {
			c.Seed(accel)
		} else {
			c.angles = gyro
		}
		return c.angles
	}

	if !ok || !c.nearGravity(acceleration) {
		c.angles = gyro
		return c.angles
	}
	if c.maxDisagreement > 0 && distance(accel, gyro) > c.maxDisagreement {
		c.rejected++
		if c.resyncAfter > 0 && c.rejected >= c.resyncAfter {
			c.Seed(accel)
			return c.angles
		}
		c.angles = gyro
		return c.angles
	}
	c.rejected = 0

	w := c.accelWeight
	c.angles = Angles{
		Roll:  w*accel.Roll + (1-w)*gyro.Roll,
		Pitch: w*accel.Pitch + (1-w)*gyro.Pitch,
	}
	return c.angles
}

// nearGravity reports whether the specific force is close enough to gravity for the
// accelerometer to be a tilt reference.
func (c *Complementary) nearGravity(acceleration imu.Vector3) bool {
	if c.maxAccelDeviation <= 0 || c.gravity <= 0 {
		return true
	}
	return math.Abs(acceleration.Norm()-c.gravity) <= c.maxAccelDeviation
}
