package status

/*
The status LED shows the operating mode:
solid on in normal control, slow flash in full manual, flash in hover, alternating long
on/off while calibrating motors, rapid flash while landing and three blinks then a pause
while the motors are cut.
*/

import (
	"github.com/dezash123/drone/internal/flight"
	"github.com/dezash123/drone/internal/state"
)

// LED patterns
type Pattern uint8

const (
	LEDOff Pattern = iota
	LEDOn
	LEDSlowFlash
	LEDFastFlash
	LEDFlash
	LEDAlternate
	LEDBlink3
)

// Pin is a digital output.
type Pin interface {
	High()
	Low()
}

// Clock returns a free running microsecond tick count.
type Clock interface {
	Ticks() uint32
}

const ms = 1000 // ticks

// blink3 is on, off, on, off, on, long off.
var blink3 = [...]uint32{100 * ms, 100 * ms, 100 * ms, 100 * ms, 100 * ms, 700 * ms}

// PatternFor returns the pattern shown in mode m.
func PatternFor(m state.OperatingMode) Pattern {
	switch m {
	case state.NormalControl:
		return LEDOn
	case state.FullManual:
		return LEDSlowFlash
	case state.Hover:
		return LEDFlash
	case state.Calibrate:
		return LEDAlternate
	case state.Land:
		return LEDFastFlash
	default:
		return LEDBlink3
	}
}

// LED drives a status LED. Update must be called regularly.
type LED struct {
	pin        Pin
	clock      Clock
	pattern    Pattern
	lastToggle uint32
	isOn       bool
	step       int
}

// NewLED returns an LED that starts off.
func NewLED(pin Pin, clock Clock) *LED {
	pin.Low()
	return &LED{
		pin:        pin,
		clock:      clock,
		lastToggle: clock.Ticks(),
	}
}

// SetPattern switches the pattern, restarting its phase when it changes.
func (l *LED) SetPattern(p Pattern) {
	if p == l.pattern {
		return
	}
	l.pattern = p
	l.step = 0
	l.lastToggle = l.clock.Ticks()
	l.set(p != LEDOff)
}

// Pattern returns the current pattern.
func (l *LED) Pattern() Pattern {
	return l.pattern
}

// IsOn reports whether the LED is lit.
func (l *LED) IsOn() bool {
	return l.isOn
}

// Update advances the pattern.
func (l *LED) Update() {
	now := l.clock.Ticks()
	switch l.pattern {
	case LEDOff:
		l.set(false)
	case LEDOn:
		l.set(true)
	case LEDSlowFlash:
		l.flash(now, 250*ms)
	case LEDFastFlash:
		l.flash(now, 50*ms)
	case LEDFlash:
		l.flash(now, 150*ms)
	case LEDAlternate:
		l.flash(now, 500*ms)
	case LEDBlink3:
		if now-l.lastToggle >= blink3[l.step] {
			l.step = (l.step + 1) % len(blink3)
			l.set(l.step%2 == 0)
			l.lastToggle = now
		}
	}
}

// Observe follows the mode of every control frame.
func (l *LED) Observe(f flight.Frame) {
	l.SetPattern(PatternFor(f.State.Mode))
	l.Update()
}

func (l *LED) flash(now, period uint32) {
	if now-l.lastToggle >= period {
		l.set(!l.isOn)
		l.lastToggle = now
	}
}

func (l *LED) set(on bool) {
	if on {
		l.pin.High()
	} else {
		l.pin.Low()
	}
	l.isOn = on
}
