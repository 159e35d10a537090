package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/estimator"
	"github.com/dezash123/drone/internal/imu"
	"github.com/dezash123/drone/internal/radio"
	"github.com/dezash123/drone/internal/state"
)

func TestMix_Neutral(t *testing.T) {
	s := Mix(0.5, 0, 0, 0)
	assert.Equal(t, Speeds{0.5, 0.5, 0.5, 0.5}, s)

	d := ToDuties(Saturate(s, 0.05), 0x6666, 0xCCCC)
	want := uint16(0x6666 + (0xCCCC-0x6666)/2)
	assert.Equal(t, Duties{want, want, want, want}, d)
}

func TestMix_SignPattern(t *testing.T) {
	assert.Equal(t, Speeds{0.6, 0.4, 0.4, 0.6}, Mix(0.5, 0.1, 0, 0), "roll")
	assert.Equal(t, Speeds{0.4, 0.4, 0.6, 0.6}, Mix(0.5, 0, 0.1, 0), "pitch")
	assert.Equal(t, Speeds{0.6, 0.4, 0.6, 0.4}, Mix(0.5, 0, 0, 0.1), "yaw")
}

func TestSaturate(t *testing.T) {
	in := Speeds{1.5, 0.5, -0.5, 1.0}
	out := Saturate(in, 0.05)

	assert.Equal(t, 1.0, out[0])
	for i := range in {
		assert.InDelta(t, in[i]/1.5, out[i], 1e-12)
	}
	// ratios between motors survive
	assert.InDelta(t, in[3]/in[1], out[3]/out[1], 1e-12)

	assert.Equal(t, Speeds{}, Saturate(Speeds{0.04, 0.01, 0.049, -0.2}, 0.05))

	within := Speeds{0.2, 0.9, 1.0, 0.3}
	assert.Equal(t, within, Saturate(within, 0.05))
}

func TestToDuties_Bounds(t *testing.T) {
	d := ToDuties(Speeds{0, 1, -0.3, 1.2}, 0x6666, 0xCCCC)
	assert.Equal(t, Duties{0x6666, 0xCCCC, 0x6666, 0xCCCC}, d)
}

func TestPID_DerivativeHeldWhenDtZero(t *testing.T) {
	pd := NewPD(1, 0.5)

	assert.Equal(t, 1.0, pd.Next(1, 0.01)) // first call has no derivative
	out := pd.Next(2, 0.01)                // derivative (2-1)/0.01 = 100
	assert.InDelta(t, 2+0.5*100, out, 1e-9)

	out = pd.Next(5, 0)
	assert.InDelta(t, 5+0.5*100, out, 1e-9)
	assert.False(t, math.IsNaN(out))
}

func TestPID_IntegralLimit(t *testing.T) {
	c := NewPID(Gains{Ki: 1}, 0.2)
	var out float64
	for i := 0; i < 100; i++ {
		out = c.Next(1, 0.01)
	}
	assert.InDelta(t, 0.2, out, 1e-12)

	c.Reset()
	assert.InDelta(t, 0.01, c.Next(1, 0.01), 1e-12)
}

func TestConstrainAndMapRange(t *testing.T) {
	assert.Equal(t, 3, Constrain(7, 0, 3))
	assert.Equal(t, -1.0, Constrain(-4.0, -1, 1))
	assert.Equal(t, uint16(1500), MapRange(uint16(50), 0, 100, 1000, 2000))
	assert.InDelta(t, 0.25, MapRange(1250.0, 1000, 2000, 0, 1), 1e-12)
}

func snapshot(cmd radio.PilotCommand, roll, pitch, yawRate float64) state.DroneState {
	return state.DroneState{
		Command:   cmd,
		TrueAngle: estimator.Angles{Roll: roll, Pitch: pitch},
		IMU: imu.Sample{
			Acceleration:    imu.Reading{Vector: imu.Vector3{0, 0, 1}},
			AngularVelocity: imu.Reading{Vector: imu.Vector3{0, 0, yawRate}},
		},
	}
}

func TestLaw_NormalLevelIsBalanced(t *testing.T) {
	l := NewLaw(config.Default(), 1)
	s := l.Normal(snapshot(radio.PilotCommand{Z: 0.5}, 0, 0, 0), 0.002)
	assert.Equal(t, Speeds{0.5, 0.5, 0.5, 0.5}, s)
}

func TestLaw_NormalCorrectsTilt(t *testing.T) {
	l := NewLaw(config.Default(), 1)

	// rolled negative: the controller lifts the left side
	s := l.Normal(snapshot(radio.PilotCommand{Z: 0.5}, -10, 0, 0), 0.002)
	assert.Greater(t, s[FrontLeft], s[FrontRight])
	assert.Greater(t, s[BackLeft], s[BackRight])

	// stick forward with a level airframe asks for positive pitch
	l.Reset()
	s = l.Normal(snapshot(radio.PilotCommand{Y: 0.5, Z: 0.5}, 0, 0, 0), 0.002)
	assert.Greater(t, s[BackLeft], s[FrontLeft])
}

func TestLaw_CorrectionIsBounded(t *testing.T) {
	cfg := config.Default()
	l := NewLaw(cfg, 1)
	s := l.Normal(snapshot(radio.PilotCommand{X: 1, Z: 0.5}, -60, 0, 0), 0.002)
	assert.InDelta(t, 0.5+cfg.Limits.MaxCorrection, s[FrontLeft], 1e-12)
	assert.InDelta(t, 0.5-cfg.Limits.MaxCorrection, s[FrontRight], 1e-12)
}

func TestLaw_Manual(t *testing.T) {
	l := NewLaw(config.Default(), 1)
	s := l.Manual(snapshot(radio.PilotCommand{X: 1, Z: 0.5}, 0, 0, 0))
	assert.InDelta(t, 0.6, s[FrontLeft], 1e-12)
	assert.InDelta(t, 0.4, s[FrontRight], 1e-12)
	assert.InDelta(t, 0.4, s[BackRight], 1e-12)
	assert.InDelta(t, 0.6, s[BackLeft], 1e-12)

	// full throttle with full roll is rescaled, not clipped
	s = l.Manual(snapshot(radio.PilotCommand{X: 1, Z: 1}, 0, 0, 0))
	assert.Equal(t, 1.0, s[FrontLeft])
	assert.InDelta(t, 0.9/1.1, s[FrontRight], 1e-12)

	// idle cut
	assert.Equal(t, Speeds{}, l.Manual(snapshot(radio.PilotCommand{Z: 0.02}, 0, 0, 0)))
}

func TestLaw_Calibrate(t *testing.T) {
	l := NewLaw(config.Default(), 1)
	s := l.Calibrate(snapshot(radio.PilotCommand{X: 1, Y: -1, Z: 0.02}, 30, 0, 0))
	assert.Equal(t, Speeds{0.02, 0.02, 0.02, 0.02}, s)
}

func TestLaw_HoverHoldsThrottleAtGravity(t *testing.T) {
	l := NewLaw(config.Default(), 1)

	s := l.Hover(snapshot(radio.PilotCommand{Z: 0.55, X: 1}, 0, 0, 0), 0.002)
	for _, v := range s {
		assert.InDelta(t, 0.55, v, 1e-12)
	}

	// the sticks no longer matter, the latched throttle does
	s = l.Hover(snapshot(radio.PilotCommand{Z: 0.9}, 0, 0, 0), 0.002)
	assert.InDelta(t, 0.55, s[FrontLeft], 1e-12)

	// sinking: less than 1 g of specific force raises the throttle
	sinking := snapshot(radio.PilotCommand{Z: 0.9}, 0, 0, 0)
	sinking.IMU.Acceleration.Vector[2] = 0.8
	s = l.Hover(sinking, 0.002)
	assert.Greater(t, s[FrontLeft], 0.55)
}

func TestLaw_ShutdownResets(t *testing.T) {
	l := NewLaw(config.Default(), 1)
	l.Normal(snapshot(radio.PilotCommand{Z: 0.5}, 10, 0, 0), 0.002)
	l.Normal(snapshot(radio.PilotCommand{Z: 0.5}, 5, 0, 0), 0.002)

	assert.Equal(t, Speeds{}, l.Shutdown())

	// no derivative kick from the memory of the previous flight
	s := l.Normal(snapshot(radio.PilotCommand{Z: 0.5}, 0, 0, 0), 0.002)
	assert.Equal(t, Speeds{0.5, 0.5, 0.5, 0.5}, s)
}

func TestLaw_UnstabilizedModesClearMemory(t *testing.T) {
	tests := map[string]func(l *Law, s state.DroneState){
		"manual":    func(l *Law, s state.DroneState) { l.Manual(s) },
		"calibrate": func(l *Law, s state.DroneState) { l.Calibrate(s) },
	}

	for name, run := range tests {
		t.Run(name, func(t *testing.T) {
			l := NewLaw(config.Default(), 1)
			l.Normal(snapshot(radio.PilotCommand{Z: 0.5}, 0, 0, 0), 0.002)

			// the airframe rolls to 20 degrees while the stabilizers are out of the loop
			for i := 0; i < 50; i++ {
				run(l, snapshot(radio.PilotCommand{Z: 0.5}, 20, 0, 0))
			}

			// first stabilized step: proportional correction only
			fresh := NewLaw(config.Default(), 1)
			want := fresh.Normal(snapshot(radio.PilotCommand{Z: 0.5}, 20, 0, 0), 0.002)
			got := l.Normal(snapshot(radio.PilotCommand{Z: 0.5}, 20, 0, 0), 0.002)
			assert.Equal(t, want, got)
			assert.InDelta(t, 2*config.Default().Gains.Roll.Kp*-20, got[FrontLeft]-got[FrontRight], 1e-12)
		})
	}
}

func TestLaw_ManualReleasesHoverLatch(t *testing.T) {
	l := NewLaw(config.Default(), 1)
	l.Hover(snapshot(radio.PilotCommand{Z: 0.55}, 0, 0, 0), 0.002)
	l.Manual(snapshot(radio.PilotCommand{Z: 0.7}, 0, 0, 0))

	s := l.Hover(snapshot(radio.PilotCommand{Z: 0.7}, 0, 0, 0), 0.002)
	assert.InDelta(t, 0.7, s[FrontLeft], 1e-12)
}

func TestLaw_Defaults(t *testing.T) {
	l := NewLaw(config.Default(), 1)
	require.NotNil(t, l.roll)
	assert.Equal(t, 0.004, l.roll.Kp)
}
