package flight

import (
	"github.com/dezash123/drone/internal/control"
	"github.com/dezash123/drone/internal/radio"
	"github.com/dezash123/drone/internal/state"
)

// Radio reads one validated pilot command. Errors are classified with radio.Classify.
type Radio interface {
	Read() (radio.PilotCommand, error)
}

// Motors sets the PWM duty of motor channel 0..3 in front left, front right, back right,
// back left order.
type Motors interface {
	SetDuty(channel int, duty uint16)
}

// Clock returns a free running microsecond tick count that wraps at 2^32.
type Clock interface {
	Ticks() uint32
}

// Frame is what one control step saw and did.
type Frame struct {
	State  state.DroneState
	DT     float64 // seconds since the previous step
	Speeds control.Speeds
	Duties control.Duties
}

// Observer receives every control frame. It runs on the control task and must not block.
type Observer interface {
	Observe(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

func (fn ObserverFunc) Observe(f Frame) { fn(f) }
