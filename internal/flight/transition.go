package flight

import (
	"fmt"
	"math"

	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/radio"
	"github.com/dezash123/drone/internal/state"
)

// Policy decides the operating mode from the fault counters and the pilot's mode switch.
type Policy struct {
	Failsafe          config.Failsafe
	Modes             map[uint8]state.OperatingMode
	HoverAuxThreshold float64
}

// NewPolicy resolves the mode names of cfg.
func NewPolicy(cfg config.Config) (Policy, error) {
	modes := make(map[uint8]state.OperatingMode, len(cfg.Modes.Map))
	for ordinal, name := range cfg.Modes.Map {
		m, err := state.ParseMode(name)
		if err != nil {
			return Policy{}, fmt.Errorf("mode switch position %d: %w", ordinal, err)
		}
		modes[ordinal] = m
	}
	return Policy{
		Failsafe:          cfg.Failsafe,
		Modes:             modes,
		HoverAuxThreshold: cfg.Modes.HoverAuxThreshold,
	}, nil
}

// Transition returns the next mode. In priority order: sustained radio loss, shorter radio loss,
// sustained IMU loss, then a fresh frame selects the mode. Without a fresh frame the current
// mode is kept, so a failsafe mode is left only on new pilot input.
func (p Policy) Transition(current state.OperatingMode, failedIMU, failedRadio uint16, cmd radio.PilotCommand, fresh bool) state.OperatingMode {
	switch {
	case failedRadio > p.Failsafe.RadioFullFailure:
		return state.FallOutOfTheSky
	case failedRadio > p.Failsafe.RadioTemporaryFailure:
		return state.Land
	case failedIMU > p.Failsafe.IMUFailure:
		return state.FallOutOfTheSky
	case fresh:
		return p.Select(cmd)
	default:
		return current
	}
}

// Select maps the mode switch of cmd to a mode. Unknown positions cut the motors.
func (p Policy) Select(cmd radio.PilotCommand) state.OperatingMode {
	m, ok := p.Modes[cmd.ModeSelect]
	if !ok {
		return state.FallOutOfTheSky
	}
	if m == state.NormalControl && p.HoverAuxThreshold > 0 && cmd.Aux >= p.HoverAuxThreshold {
		return state.Hover
	}
	return m
}

// bump increments a fault counter, saturating at its ceiling.
func bump(n uint16) uint16 {
	if n < math.MaxUint16 {
		n++
	}
	return n
}
