package sim

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/dezash123/drone/internal/imu"
)

// ErrInjected is returned by sensor reads failed on purpose.
var ErrInjected = errors.New("injected sensor fault")

// Noise is the standard deviation of white noise added to each axis.
type Noise struct {
	Accel float64 `yaml:"accel"` // g
	Gyro  float64 `yaml:"gyro"`  // deg/s
}

// SensorOption configures a Sensor.
type SensorOption func(s *Sensor)

// WithNoise adds seeded white noise to every reading.
func WithNoise(n Noise, seed int64) SensorOption {
	return func(s *Sensor) {
		s.noise = n
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithGyroBias adds a constant offset to the angular rate.
func WithGyroBias(bias imu.Vector3) SensorOption {
	return func(s *Sensor) {
		s.bias = bias
	}
}

// Sensor is an imu.Sensor reading the plant.
type Sensor struct {
	quad  *Quad
	clock *Clock
	noise Noise
	bias  imu.Vector3

	mu       sync.Mutex
	rng      *rand.Rand
	failures int
}

var _ imu.Sensor = (*Sensor)(nil)

// NewSensor returns a sensor mounted on q, timestamped by clock.
func NewSensor(q *Quad, clock *Clock, options ...SensorOption) *Sensor {
	s := Sensor{quad: q, clock: clock}
	for _, option := range options {
		option(&s)
	}
	return &s
}

// Fail makes the next n reads return ErrInjected.
func (s *Sensor) Fail(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

func (s *Sensor) ReadAcceleration() (imu.Reading, error) {
	if err := s.injected(); err != nil {
		return imu.Reading{}, err
	}

	s.quad.mu.Lock()
	v := imu.Vector3(s.quad.specificForce())
	s.quad.mu.Unlock()

	return imu.Reading{Vector: s.perturb(v, s.noise.Accel), Timestamp: s.clock.Ticks()}, nil
}

func (s *Sensor) ReadAngularVelocity() (imu.Reading, error) {
	if err := s.injected(); err != nil {
		return imu.Reading{}, err
	}

	a := s.quad.Attitude()
	v := imu.Vector3{a.RollRate, a.PitchRate, a.YawRate}
	for i := range v {
		v[i] += s.bias[i]
	}

	return imu.Reading{Vector: s.perturb(v, s.noise.Gyro), Timestamp: s.clock.Ticks()}, nil
}

func (s *Sensor) injected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return ErrInjected
	}
	return nil
}

func (s *Sensor) perturb(v imu.Vector3, sigma float64) imu.Vector3 {
	if sigma == 0 || s.rng == nil {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range v {
		v[i] += s.rng.NormFloat64() * sigma
	}
	return v
}
