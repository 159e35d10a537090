package imu

// Monotonic wraps a Sensor and rejects readings whose timestamp goes backwards.
type Monotonic struct {
	sensor   Sensor
	lastAcc  uint32
	lastGyro uint32
	seenAcc  bool
	seenGyro bool
}

// NewMonotonic returns a Sensor that fails with ErrStaleSample on out of order readings.
func NewMonotonic(s Sensor) *Monotonic {
	return &Monotonic{sensor: s}
}

func (m *Monotonic) ReadAcceleration() (Reading, error) {
	r, err := m.sensor.ReadAcceleration()
	if err != nil {
		return Reading{}, err
	}
	if m.seenAcc && !newer(r.Timestamp, m.lastAcc) {
		return Reading{}, &SensorFault{Channel: ChannelAcceleration, Err: ErrStaleSample}
	}
	m.lastAcc, m.seenAcc = r.Timestamp, true
	return r, nil
}

func (m *Monotonic) ReadAngularVelocity() (Reading, error) {
	r, err := m.sensor.ReadAngularVelocity()
	if err != nil {
		return Reading{}, err
	}
	if m.seenGyro && !newer(r.Timestamp, m.lastGyro) {
		return Reading{}, &SensorFault{Channel: ChannelAngularVelocity, Err: ErrStaleSample}
	}
	m.lastGyro, m.seenGyro = r.Timestamp, true
	return r, nil
}
