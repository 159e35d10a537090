package control

// Motor order, clockwise from the front left
const (
	FrontLeft = iota
	FrontRight
	BackRight
	BackLeft

	Motors
)

// Speeds are normalized motor outputs, nominally in [0, 1].
type Speeds [Motors]float64

// Duties are motor PWM duty values.
type Duties [Motors]uint16

// Mix maps throttle plus roll (x), pitch (y) and yaw (z) corrections onto the four motors.
func Mix(throttle, x, y, z float64) Speeds {
	return Speeds{
		FrontLeft:  throttle + x - y + z,
		FrontRight: throttle - x - y - z,
		BackRight:  throttle - x + y + z,
		BackLeft:   throttle + x + y - z,
	}
}

// Saturate zeroes all outputs when the largest is below idle, and scales all of them down
// together when the largest exceeds 1 so the corrections keep their ratios.
func Saturate(s Speeds, idle float64) Speeds {
	max := s[0]
	for _, v := range s[1:] {
		if v > max {
			max = v
		}
	}

	switch {
	case max < idle:
		return Speeds{}
	case max > 1:
		for i := range s {
			s[i] /= max
		}
	}
	return s
}

// ToDuties clamps each speed to [0, 1] and maps it linearly onto [min, max].
func ToDuties(s Speeds, min, max uint16) Duties {
	var d Duties
	for i, v := range s {
		v = Constrain(v, 0, 1)
		d[i] = uint16(MapRange(v, 0, 1, float64(min), float64(max)))
	}
	return d
}
