package imu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSensor replays fixed vectors with an advancing clock.
type scriptedSensor struct {
	acc, gyro Vector3
	ts        uint32
	step      uint32
	failAfter int // reads before failing, negative never fails
	reads     int
	err       error
}

func (s *scriptedSensor) fail() error {
	s.reads++
	if s.failAfter >= 0 && s.reads > s.failAfter {
		return s.err
	}
	return nil
}

func (s *scriptedSensor) ReadAcceleration() (Reading, error) {
	if err := s.fail(); err != nil {
		return Reading{}, err
	}
	s.ts += s.step
	return Reading{Vector: s.acc, Timestamp: s.ts}, nil
}

func (s *scriptedSensor) ReadAngularVelocity() (Reading, error) {
	return Reading{Vector: s.gyro, Timestamp: s.ts}, nil
}

func TestCalibrate(t *testing.T) {
	s := &scriptedSensor{
		acc:       Vector3{0, 0.6, 0.8},
		gyro:      Vector3{0.5, -0.25, 2},
		step:      1000,
		failAfter: -1,
	}

	var calls int
	cal, err := Calibrate(s, 1000, func(done int) { calls = done })
	require.NoError(t, err)

	assert.Equal(t, 1000, calls)
	assert.InDelta(t, 1.0, cal.Gravity, 1e-9)
	assert.InDeltaSlice(t, []float64{0.5, -0.25, 2}, cal.GyroBias[:], 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0.6, 0.8}, cal.Level[:], 1e-9)

	c := NewCalibrated(s, cal)
	r, err := c.ReadAngularVelocity()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, r.Vector[:], 1e-9)
}

func TestCalibrate_ReadFailureIsSetupFault(t *testing.T) {
	i2cErr := errors.New("i2c nack")
	s := &scriptedSensor{acc: Vector3{0, 0, 1}, failAfter: 10, err: i2cErr}

	_, err := Calibrate(s, 100, nil)
	require.Error(t, err)

	var setup *SetupFault
	require.ErrorAs(t, err, &setup)
	assert.Equal(t, "calibration", setup.Stage)

	var fault *SensorFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, ChannelAcceleration, fault.Channel)
	assert.ErrorIs(t, err, i2cErr)
}

func TestCalibrate_ZeroGravity(t *testing.T) {
	_, err := Calibrate(&scriptedSensor{failAfter: -1}, 10, nil)
	var setup *SetupFault
	assert.ErrorAs(t, err, &setup)
}

func TestMonotonic(t *testing.T) {
	s := &scriptedSensor{acc: Vector3{0, 0, 1}, step: 10, failAfter: -1}
	m := NewMonotonic(s)

	_, err := m.ReadAcceleration()
	require.NoError(t, err)

	// equal timestamps are allowed
	s.step = 0
	_, err = m.ReadAcceleration()
	require.NoError(t, err)

	s.ts -= 5
	_, err = m.ReadAcceleration()
	assert.ErrorIs(t, err, ErrStaleSample)

	var fault *SensorFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, ChannelAcceleration, fault.Channel)
}

func TestMonotonic_Wraparound(t *testing.T) {
	s := &scriptedSensor{acc: Vector3{0, 0, 1}, ts: 0xFFFFFF00, step: 0x80, failAfter: -1}
	m := NewMonotonic(s)

	for i := 0; i < 4; i++ {
		_, err := m.ReadAcceleration()
		require.NoError(t, err, "read %d", i)
	}
	assert.Less(t, s.ts, uint32(0x200))
}

func TestSince(t *testing.T) {
	assert.Equal(t, uint32(2000), Since(3000, 1000))
	assert.Equal(t, uint32(0x150), Since(0x50, 0xFFFFFF00))
}

func TestVector3(t *testing.T) {
	v := Vector3{3, 4, 12}
	assert.Equal(t, 13.0, v.Norm())
	assert.Equal(t, Vector3{2, 3, 11}, v.Sub(Vector3{1, 1, 1}))
	assert.Equal(t, Vector3{6, 8, 24}, v.Scale(2))
}
