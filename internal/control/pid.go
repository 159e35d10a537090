package control

// Gains of a PID controller
type Gains struct {
	Kp, Ki, Kd float64
}

// PID holds the state of one axis controller. The integral is stored already scaled by Ki.
type PID struct {
	Gains
	integralLimit float64

	lastError      float64
	lastDerivative float64
	integral       float64
	primed         bool
}

// NewPID creates a PID controller. A positive integralLimit bounds the integral term.
func NewPID(g Gains, integralLimit float64) *PID {
	return &PID{
		Gains:         g,
		integralLimit: integralLimit,
	}
}

// NewPD creates a controller without an integral term.
func NewPD(kp, kd float64) *PID {
	return NewPID(Gains{Kp: kp, Kd: kd}, 0)
}

// Next calculates the control output for the current error, dt seconds after the previous call.
// With dt == 0 the previous derivative is held and the integral is left unchanged.
func (pid *PID) Next(currentError, dt float64) float64 {
	// Proportional term
	proportional := pid.Kp * currentError

	// Derivative term
	derivative := pid.lastDerivative
	switch {
	case !pid.primed:
		derivative = 0
	case dt > 0:
		derivative = (currentError - pid.lastError) / dt
	}
	pid.lastError = currentError
	pid.lastDerivative = derivative
	pid.primed = true

	// Integral term
	if dt > 0 && pid.Ki != 0 {
		pid.integral += pid.Ki * currentError * dt
		if pid.integralLimit > 0 {
			pid.integral = Constrain(pid.integral, -pid.integralLimit, pid.integralLimit)
		}
	}

	return proportional + pid.integral + pid.Kd*derivative
}

// Reset clears the controller memory.
func (pid *PID) Reset() {
	pid.lastError = 0
	pid.lastDerivative = 0
	pid.integral = 0
	pid.primed = false
}
