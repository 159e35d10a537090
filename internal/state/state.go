package state

import (
	"fmt"
	"sync"

	"github.com/dezash123/drone/internal/estimator"
	"github.com/dezash123/drone/internal/imu"
	"github.com/dezash123/drone/internal/radio"
)

// OperatingMode is the top level flight mode.
type OperatingMode uint8

const (
	Calibrate OperatingMode = iota
	FullManual
	NormalControl
	Hover
	Land
	FallOutOfTheSky
)

var modeNames = [...]string{
	Calibrate:       "calibrate",
	FullManual:      "fullManual",
	NormalControl:   "normalControl",
	Hover:           "hover",
	Land:            "land",
	FallOutOfTheSky: "fallOutOfTheSky",
}

func (m OperatingMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("OperatingMode(%d)", uint8(m))
}

// IsFault reports whether the mode is a failsafe mode entered on sensor or radio loss.
func (m OperatingMode) IsFault() bool {
	return m == Land || m == FallOutOfTheSky
}

// ParseMode returns the mode with the given name.
func ParseMode(name string) (OperatingMode, error) {
	for m, n := range modeNames {
		if n == name {
			return OperatingMode(m), nil
		}
	}
	return FallOutOfTheSky, fmt.Errorf("unknown operating mode %q", name)
}

// DroneState is the snapshot shared between the acquisition and control tasks.
// It holds only values, so a struct copy is a complete snapshot.
type DroneState struct {
	Command     radio.PilotCommand
	IMU         imu.Sample
	TrueAngle   estimator.Angles
	Mode        OperatingMode
	FailedIMU   uint16
	FailedRadio uint16
	FreshRadio  bool   // a valid frame arrived in the publishing cycle
	Cycle       uint64 // publish counter
}

// Guard serializes access to one DroneState.
// Critical sections only copy; callers do their I/O outside.
type Guard struct {
	mu    sync.Mutex
	state DroneState
}

// NewGuard returns a Guard holding the initial state.
func NewGuard(initial DroneState) *Guard {
	return &Guard{state: initial}
}

// Load returns a copy of the current state.
func (g *Guard) Load() DroneState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Store replaces the current state.
func (g *Guard) Store(s DroneState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}

// Update applies a short in-place edit. fn must not block or call back into the Guard.
func (g *Guard) Update(fn func(s *DroneState)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.state)
}
