// Package sim is a software-in-the-loop test bench: a rigid quad plant, the IMU and radio it
// feeds, and a virtual clock.
package sim

import (
	"math"
	"sync"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/control"
)

const gravity = 9.81 // m/s^2

// Params describes the airframe.
type Params struct {
	// Total thrust at full throttle on every motor, in multiples of the weight.
	ThrustToWeight float64 `yaml:"thrustToWeight"`
	// Angular acceleration in deg/s^2 per unit of weight-normalized thrust difference.
	RollAuthority  float64 `yaml:"rollAuthority"`
	PitchAuthority float64 `yaml:"pitchAuthority"`
	YawAuthority   float64 `yaml:"yawAuthority"`
	// Rate damping in 1/s.
	RateDamping float64 `yaml:"rateDamping"`
	// Vertical drag in 1/s.
	Drag float64 `yaml:"drag"`
}

// DefaultParams returns a small X frame with a 2:1 thrust to weight ratio.
func DefaultParams() Params {
	return Params{
		ThrustToWeight: 2,
		RollAuthority:  9000,
		PitchAuthority: 9000,
		YawAuthority:   3000,
		RateDamping:    2,
		Drag:           0.5,
	}
}

// Attitude is the true orientation and body rates of the plant, in degrees and degrees/sec.
type Attitude struct {
	Roll, Pitch, Yaw             float64
	RollRate, PitchRate, YawRate float64
}

// Quad is the plant. Motor thrust grows with the square of the normalized speed.
// It implements flight.Motors. All methods are safe for concurrent use.
type Quad struct {
	params Params
	motors config.Motors

	mu       sync.Mutex
	speeds   control.Speeds
	attitude Attitude
	altitude float64 // m
	climb    float64 // m/s
	load     float64 // specific force along the body z axis, in g
}

// NewQuad returns a quad resting level on the ground. motors gives the duty range of the ESCs.
func NewQuad(params Params, motors config.Motors) *Quad {
	return &Quad{params: params, motors: motors, load: 1}
}

// SetDuty sets the PWM duty of one motor.
func (q *Quad) SetDuty(channel int, duty uint16) {
	if channel < 0 || channel >= control.Motors {
		return
	}
	lo, hi := float64(q.motors.MinThrottle), float64(q.motors.MaxThrottle)
	speed := control.Constrain((float64(duty)-lo)/(hi-lo), 0, 1)

	q.mu.Lock()
	q.speeds[channel] = speed
	q.mu.Unlock()
}

// Speeds returns the current normalized motor speeds.
func (q *Quad) Speeds() control.Speeds {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speeds
}

// Attitude returns the true attitude.
func (q *Quad) Attitude() Attitude {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.attitude
}

// Altitude returns the height above ground in meters and the climb rate in m/s.
func (q *Quad) Altitude() (altitude, climb float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.altitude, q.climb
}

// OnGround reports whether the quad is resting on the ground.
func (q *Quad) OnGround() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.onGround()
}

// Disturb adds to the body rates, like a gust.
func (q *Quad) Disturb(rollRate, pitchRate, yawRate float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.attitude.RollRate += rollRate
	q.attitude.PitchRate += pitchRate
	q.attitude.YawRate += yawRate
}

// Step integrates the plant over dt seconds.
func (q *Quad) Step(dt float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.params
	var thrust control.Speeds
	var total float64
	for i, s := range q.speeds {
		thrust[i] = p.ThrustToWeight / control.Motors * s * s
		total += thrust[i]
	}

	a := &q.attitude
	tilt := math.Cos(radians(a.Roll)) * math.Cos(radians(a.Pitch))

	// vertical acceleration in g
	accel := total*tilt - 1 - p.Drag*q.climb/gravity
	if q.onGround() && accel <= 0 {
		q.climb, q.load = 0, 1
		a.RollRate, a.PitchRate, a.YawRate = 0, 0, 0
		return
	}

	q.climb += accel * gravity * dt
	q.altitude += q.climb * dt
	if q.altitude < 0 {
		q.altitude, q.climb = 0, 0
	}
	q.load = 1 + accel

	fl, fr, br, bl := thrust[control.FrontLeft], thrust[control.FrontRight], thrust[control.BackRight], thrust[control.BackLeft]
	rollAcc := p.RollAuthority*((fl+bl)-(fr+br)) - p.RateDamping*a.RollRate
	pitchAcc := p.PitchAuthority*((bl+br)-(fl+fr)) - p.RateDamping*a.PitchRate
	yawAcc := p.YawAuthority*((fl+br)-(fr+bl)) - p.RateDamping*a.YawRate

	a.RollRate += rollAcc * dt
	a.PitchRate += pitchAcc * dt
	a.YawRate += yawAcc * dt
	a.Roll += a.RollRate * dt
	a.Pitch += a.PitchRate * dt
	a.Yaw = math.Mod(a.Yaw+a.YawRate*dt, 360)
}

// specificForce is the accelerometer reading in g: the body frame gravity direction scaled by
// the vertical load factor.
func (q *Quad) specificForce() [3]float64 {
	r, p := radians(q.attitude.Roll), radians(q.attitude.Pitch)
	return [3]float64{
		-math.Sin(p) * q.load,
		math.Sin(r) * math.Cos(p) * q.load,
		math.Cos(r) * math.Cos(p) * q.load,
	}
}

func (q *Quad) onGround() bool {
	return q.altitude <= 0
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
