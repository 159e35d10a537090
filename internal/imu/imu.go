package imu

import (
	"errors"
	"fmt"
	"math"
)

// Vector3 is an x, y, z triple. Acceleration is in g, angular rate in degrees/sec.
type Vector3 [3]float64

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v * k.
func (v Vector3) Scale(k float64) Vector3 {
	return Vector3{v[0] * k, v[1] * k, v[2] * k}
}

// Reading is one timestamped vector. Timestamp is a free running microsecond tick count.
type Reading struct {
	Vector    Vector3
	Timestamp uint32
}

// Sample holds the latest reading of each channel.
type Sample struct {
	Acceleration    Reading
	AngularVelocity Reading
}

// Sensor reads calibrated acceleration and angular rate.
type Sensor interface {
	ReadAcceleration() (Reading, error)
	ReadAngularVelocity() (Reading, error)
}

// Sensor channels
const (
	ChannelAcceleration    = "acceleration"
	ChannelAngularVelocity = "angular velocity"
)

// ErrStaleSample is returned when a channel reports a timestamp older than its previous one.
var ErrStaleSample = errors.New("stale imu sample")

// SensorFault is a failed read of one channel.
type SensorFault struct {
	Channel string
	Err     error
}

func (e *SensorFault) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Channel, e.Err)
}

func (e *SensorFault) Unwrap() error {
	return e.Err
}

// SetupFault is a failure during sensor bring-up or calibration. It is fatal.
type SetupFault struct {
	Stage string
	Err   error
}

func (e *SetupFault) Error() string {
	return fmt.Sprintf("imu setup failed during %s: %v", e.Stage, e.Err)
}

func (e *SetupFault) Unwrap() error {
	return e.Err
}

// ReadSample reads both channels. The returned error is a *SensorFault.
func ReadSample(s Sensor) (Sample, error) {
	acc, err := s.ReadAcceleration()
	if err != nil {
		return Sample{}, asSensorFault(ChannelAcceleration, err)
	}
	gyro, err := s.ReadAngularVelocity()
	if err != nil {
		return Sample{}, asSensorFault(ChannelAngularVelocity, err)
	}
	return Sample{Acceleration: acc, AngularVelocity: gyro}, nil
}

func asSensorFault(channel string, err error) error {
	var fault *SensorFault
	if errors.As(err, &fault) {
		return err
	}
	return &SensorFault{Channel: channel, Err: err}
}

// Since returns the microseconds elapsed from earlier to later, correct across one wraparound.
func Since(later, earlier uint32) uint32 {
	return later - earlier
}

// newer reports whether ts is not older than prev, treating the tick counter as circular.
func newer(ts, prev uint32) bool {
	return int32(ts-prev) >= 0
}
