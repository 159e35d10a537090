package imu

import (
	"errors"
	"fmt"
)

// Calibration is the result of averaging readings taken at rest.
type Calibration struct {
	GyroBias Vector3 // degrees/sec
	Gravity  float64 // magnitude of the resting acceleration, g
	Level    Vector3 // mean resting acceleration
}

// Calibrate averages samples readings of a stationary sensor to find the gyro bias and the
// local gravity magnitude. Any failed read aborts with a *SetupFault.
// progress, if not nil, is called after every reading.
func Calibrate(s Sensor, samples int, progress func(done int)) (Calibration, error) {
	if samples <= 0 {
		return Calibration{}, &SetupFault{Stage: "calibration", Err: fmt.Errorf("invalid sample count %d", samples)}
	}

	var accSum, gyroSum Vector3
	var gravitySum float64
	for i := 0; i < samples; i++ {
		sample, err := ReadSample(s)
		if err != nil {
			return Calibration{}, &SetupFault{Stage: "calibration", Err: err}
		}
		for axis := range accSum {
			accSum[axis] += sample.Acceleration.Vector[axis]
			gyroSum[axis] += sample.AngularVelocity.Vector[axis]
		}
		gravitySum += sample.Acceleration.Vector.Norm()
		if progress != nil {
			progress(i + 1)
		}
	}

	n := float64(samples)
	c := Calibration{
		GyroBias: gyroSum.Scale(1 / n),
		Gravity:  gravitySum / n,
		Level:    accSum.Scale(1 / n),
	}
	if c.Gravity == 0 {
		return Calibration{}, &SetupFault{Stage: "calibration", Err: errors.New("accelerometer reads zero at rest")}
	}
	return c, nil
}

// Calibrated wraps a Sensor and subtracts the gyro bias from angular rate readings.
type Calibrated struct {
	Sensor
	cal Calibration
}

// NewCalibrated applies cal to every angular rate reading of s.
func NewCalibrated(s Sensor, cal Calibration) *Calibrated {
	return &Calibrated{Sensor: s, cal: cal}
}

func (c *Calibrated) ReadAngularVelocity() (Reading, error) {
	r, err := c.Sensor.ReadAngularVelocity()
	if err != nil {
		return Reading{}, err
	}
	r.Vector = r.Vector.Sub(c.cal.GyroBias)
	return r, nil
}

// Calibration returns the applied calibration.
func (c *Calibrated) Calibration() Calibration {
	return c.cal
}
