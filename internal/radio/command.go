package radio

import "math"

// Raw channel bounds in microseconds, as sent by the receiver.
const (
	MinChannelValue = 1000
	MaxChannelValue = 2000

	// A throttle reading above this is treated as the full-throttle detent.
	throttleDetent = 0.95
)

// Number of channels consumed by the flight core: x, y, z, twist, mode, aux.
const CommandChannels = 6

// PilotCommand is one decoded radio frame. It is replaced wholesale on every valid frame.
type PilotCommand struct {
	X          float64 // roll stick, [-1, 1]
	Y          float64 // pitch stick, [-1, 1]
	Z          float64 // throttle, [0, 1]
	Twist      float64 // yaw stick, [-1, 1]
	ModeSelect uint8   // mode switch ordinal
	Aux        float64 // free-running tuning knob, [0, 1]
}

// DecodeChannels turns the first six raw channel values into a PilotCommand.
func DecodeChannels(raw [CommandChannels]uint16) PilotCommand {
	var ch [CommandChannels]float64
	for i, v := range raw {
		ch[i] = normalize(v)
	}

	if ch[2] > throttleDetent {
		ch[2] = 1.0
	}

	return PilotCommand{
		X:          ch[0]*2 - 1,
		Y:          ch[1]*2 - 1,
		Z:          ch[2],
		Twist:      ch[3]*2 - 1,
		ModeSelect: uint8(ch[4] * 2),
		Aux:        ch[5],
	}
}

// normalize clamps a raw channel to [1000, 2000] and rescales it to [0, 1].
func normalize(v uint16) float64 {
	switch {
	case v < MinChannelValue:
		return 0
	case v > MaxChannelValue:
		return 1
	default:
		return float64(v-MinChannelValue) / float64(MaxChannelValue-MinChannelValue)
	}
}

// EncodeChannels is the inverse of DecodeChannels. Channels past the sixth are centered.
func EncodeChannels(cmd PilotCommand) [IBusChannels]uint16 {
	var ch [IBusChannels]uint16
	for i := range ch {
		ch[i] = (MinChannelValue + MaxChannelValue) / 2
	}
	ch[0] = denormalize((cmd.X + 1) / 2)
	ch[1] = denormalize((cmd.Y + 1) / 2)
	ch[2] = denormalize(cmd.Z)
	ch[3] = denormalize((cmd.Twist + 1) / 2)
	ch[4] = denormalize(float64(cmd.ModeSelect) / 2)
	ch[5] = denormalize(cmd.Aux)
	return ch
}

func denormalize(v float64) uint16 {
	v = math.Max(0, math.Min(1, v))
	return MinChannelValue + uint16(math.Round(v*(MaxChannelValue-MinChannelValue)))
}
