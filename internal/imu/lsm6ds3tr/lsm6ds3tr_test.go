package lsm6ds3tr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dezash123/drone/internal/imu"
)

type fakeDevice struct {
	acc, rot [3]int32
	err      error
}

func (d *fakeDevice) ReadAcceleration() (int32, int32, int32, error) {
	return d.acc[0], d.acc[1], d.acc[2], d.err
}

func (d *fakeDevice) ReadRotation() (int32, int32, int32, error) {
	return d.rot[0], d.rot[1], d.rot[2], d.err
}

type stepClock struct{ now uint32 }

func (c *stepClock) Ticks() uint32 {
	c.now += 1000
	return c.now
}

func TestSensor_Units(t *testing.T) {
	dev := &fakeDevice{
		acc: [3]int32{0, -500000, 1000000},
		rot: [3]int32{250000, 0, -90000000},
	}
	s := NewWithDevice(dev, &stepClock{})

	acc, err := s.ReadAcceleration()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -0.5, 1}, acc.Vector[:], 1e-12)
	assert.Equal(t, uint32(1000), acc.Timestamp)

	gyro, err := s.ReadAngularVelocity()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25, 0, -90}, gyro.Vector[:], 1e-12)
	assert.Equal(t, uint32(2000), gyro.Timestamp)
}

func TestSensor_ReadError(t *testing.T) {
	busErr := errors.New("i2c timeout")
	s := NewWithDevice(&fakeDevice{err: busErr}, &stepClock{})

	_, err := s.ReadAngularVelocity()
	var fault *imu.SensorFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, imu.ChannelAngularVelocity, fault.Channel)
	assert.ErrorIs(t, err, busErr)
}
