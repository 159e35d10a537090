package sim

import (
	"sync"
	"time"

	"github.com/dezash123/drone/internal/radio"
)

// DefaultFramePeriod is the iBus frame interval.
const DefaultFramePeriod = 7 * time.Millisecond

// Transmitter is a radio.ByteSource that emits one iBus frame per period of the virtual clock
// carrying the current stick positions.
type Transmitter struct {
	clock  *Clock
	period uint32

	mu       sync.Mutex
	channels [radio.IBusChannels]uint16
	dropout  bool
	corrupt  int
	pending  []byte
	last     uint32
	started  bool
}

var _ radio.ByteSource = (*Transmitter)(nil)

// NewTransmitter returns a transmitter with the sticks centered, throttle down and mode 0.
func NewTransmitter(clock *Clock, period time.Duration) *Transmitter {
	t := Transmitter{clock: clock, period: uint32(period.Microseconds())}
	t.channels = radio.EncodeChannels(radio.PilotCommand{})
	return &t
}

// Set moves the sticks and switches.
func (t *Transmitter) Set(cmd radio.PilotCommand) {
	t.mu.Lock()
	t.channels = radio.EncodeChannels(cmd)
	t.mu.Unlock()
}

// SetDropout stops or resumes transmission.
func (t *Transmitter) SetDropout(lost bool) {
	t.mu.Lock()
	t.dropout = lost
	t.pending = nil
	t.mu.Unlock()
}

// Corrupt flips a payload bit in the next n frames.
func (t *Transmitter) Corrupt(n int) {
	t.mu.Lock()
	t.corrupt = n
	t.mu.Unlock()
}

func (t *Transmitter) ReadByte() (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pending) == 0 {
		if !t.due() {
			return 0, radio.ErrNoNewData
		}
		frame := radio.Encode(t.channels)
		if t.corrupt > 0 {
			t.corrupt--
			frame[5] ^= 0x01
		}
		t.pending = frame[:]
	}

	b := t.pending[0]
	t.pending = t.pending[1:]
	return b, nil
}

// due reports whether a new frame is on the wire.
func (t *Transmitter) due() bool {
	if t.dropout {
		return false
	}
	now := t.clock.Ticks()
	if t.started && now-t.last < t.period {
		return false
	}
	t.started = true
	t.last = now
	return true
}
