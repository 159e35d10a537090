// Package lsm6ds3tr adapts the LSM6DS3TR 6-axis IMU to imu.Sensor.
package lsm6ds3tr

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/lsm6ds3tr"

	"github.com/dezash123/drone/internal/imu"
)

// The driver returns micro-g for acceleration and micro-degrees/sec for rotation.
const (
	microGToG     = 1e-6
	microDPSToDPS = 1e-6
)

// Device is the subset of the driver used by the adapter.
type Device interface {
	ReadAcceleration() (x, y, z int32, err error)
	ReadRotation() (x, y, z int32, err error)
}

// Clock returns a free running microsecond tick count.
type Clock interface {
	Ticks() uint32
}

// ErrNotConnected is returned when the WHO_AM_I check fails.
var ErrNotConnected = errors.New("LSM6DS3TR not connected")

// Configuration used for flight: 8 g, 1000 dps, both at 833 Hz.
var Configuration = lsm6ds3tr.Configuration{
	AccelRange:      lsm6ds3tr.ACCEL_8G,
	AccelSampleRate: lsm6ds3tr.ACCEL_SR_833,
	GyroRange:       lsm6ds3tr.GYRO_1000DPS,
	GyroSampleRate:  lsm6ds3tr.GYRO_SR_833,
}

// Sensor reads the LSM6DS3TR and stamps each reading with the clock.
type Sensor struct {
	dev   Device
	clock Clock
}

// New configures the IMU on bus and checks that it answers.
// Failures are returned as *imu.SetupFault.
func New(bus drivers.I2C, clock Clock) (*Sensor, error) {
	dev := lsm6ds3tr.New(bus)
	if err := dev.Configure(Configuration); err != nil {
		return nil, &imu.SetupFault{Stage: "configure", Err: err}
	}
	if !dev.Connected() {
		return nil, &imu.SetupFault{Stage: "connect", Err: ErrNotConnected}
	}
	return NewWithDevice(dev, clock), nil
}

// NewWithDevice wraps an already configured device.
func NewWithDevice(dev Device, clock Clock) *Sensor {
	return &Sensor{dev: dev, clock: clock}
}

// ReadAcceleration returns the acceleration in g.
func (s *Sensor) ReadAcceleration() (imu.Reading, error) {
	x, y, z, err := s.dev.ReadAcceleration()
	if err != nil {
		return imu.Reading{}, &imu.SensorFault{Channel: imu.ChannelAcceleration, Err: err}
	}
	return imu.Reading{
		Vector:    scale(x, y, z, microGToG),
		Timestamp: s.clock.Ticks(),
	}, nil
}

// ReadAngularVelocity returns the angular rate in degrees/sec.
func (s *Sensor) ReadAngularVelocity() (imu.Reading, error) {
	x, y, z, err := s.dev.ReadRotation()
	if err != nil {
		return imu.Reading{}, &imu.SensorFault{Channel: imu.ChannelAngularVelocity, Err: err}
	}
	return imu.Reading{
		Vector:    scale(x, y, z, microDPSToDPS),
		Timestamp: s.clock.Ticks(),
	}, nil
}

func scale(x, y, z int32, k float64) imu.Vector3 {
	return imu.Vector3{float64(x) * k, float64(y) * k, float64(z) * k}
}
