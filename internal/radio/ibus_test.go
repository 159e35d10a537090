package radio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func centered() [IBusChannels]uint16 {
	var ch [IBusChannels]uint16
	for i := range ch {
		ch[i] = 1500
	}
	return ch
}

func payloadOf(frame [IBusPayloadSize + 1]byte) IBusPayload {
	var p IBusPayload
	copy(p[:], frame[1:])
	return p
}

func TestDecodeChannels_ClampAndScale(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float64
	}{
		{raw: 0, want: 0},
		{raw: 999, want: 0},
		{raw: 1000, want: 0},
		{raw: 1250, want: 0.25},
		{raw: 1500, want: 0.5},
		{raw: 2000, want: 1},
		{raw: 2001, want: 1},
		{raw: 0xFFFF, want: 1},
	}

	for _, tt := range tests {
		cmd := DecodeChannels([CommandChannels]uint16{1500, 1500, 1000, 1500, 1000, tt.raw})
		assert.Equal(t, tt.want, cmd.Aux, "raw %d", tt.raw)

		// the same value on a stick channel lands in [-1, 1]
		cmd = DecodeChannels([CommandChannels]uint16{tt.raw, 1500, 1000, 1500, 1000, 1000})
		assert.Equal(t, tt.want*2-1, cmd.X, "raw %d", tt.raw)
	}
}

func TestDecodeChannels_ThrottleDetent(t *testing.T) {
	cmd := DecodeChannels([CommandChannels]uint16{1500, 1500, 1960, 1500, 1000, 1000})
	assert.Equal(t, 1.0, cmd.Z)

	cmd = DecodeChannels([CommandChannels]uint16{1500, 1500, 1950, 1500, 1000, 1000})
	assert.InDelta(t, 0.95, cmd.Z, 1e-9)

	cmd = DecodeChannels([CommandChannels]uint16{1500, 1500, 900, 1500, 1000, 1000})
	assert.Equal(t, 0.0, cmd.Z)
}

func TestDecodeChannels_ModeSelect(t *testing.T) {
	tests := map[uint16]uint8{
		900:  0,
		1000: 0,
		1499: 0,
		1500: 1,
		1999: 1,
		2000: 2,
		2100: 2,
	}
	for raw, want := range tests {
		cmd := DecodeChannels([CommandChannels]uint16{1500, 1500, 1000, 1500, raw, 1000})
		assert.Equal(t, want, cmd.ModeSelect, "raw %d", raw)
	}
}

func TestEncode_ChecksumLayout(t *testing.T) {
	frame := Encode(centered())

	assert.Equal(t, byte(IBusHeader1), frame[0])
	assert.Equal(t, byte(IBusHeader2), frame[1])

	p := payloadOf(frame)
	// 0xFFDF - sum(payload[0:29]) for fourteen centered channels is 0xF351, low byte first
	assert.Equal(t, byte(0x51), p[29])
	assert.Equal(t, byte(0xF3), p[30])
	require.NoError(t, Validate(&p))

	for i := 0; i < IBusChannels; i++ {
		assert.Equal(t, uint16(1500), p.Channel(i))
	}
}

func TestValidate_SingleBitFlip(t *testing.T) {
	ch := centered()
	ch[0], ch[2], ch[4] = 1200, 1730, 2000
	good := payloadOf(Encode(ch))
	require.NoError(t, Validate(&good))

	for i := 0; i < ibusChecksumAt; i++ {
		for bit := 0; bit < 8; bit++ {
			p := good
			p[i] ^= 1 << bit

			err := Validate(&p)
			require.Error(t, err, "byte %d bit %d", i, bit)
			assert.True(t, errors.Is(err, ErrChecksumMismatch))
		}
	}
}

func TestDecode_Payload(t *testing.T) {
	ch := centered()
	ch[0] = 2000 // full right
	ch[1] = 1000 // full back
	ch[2] = 1250
	ch[3] = 1750
	ch[4] = 1500
	ch[5] = 1100
	p := payloadOf(Encode(ch))

	cmd := Decode(&p)
	assert.Equal(t, 1.0, cmd.X)
	assert.Equal(t, -1.0, cmd.Y)
	assert.InDelta(t, 0.25, cmd.Z, 1e-9)
	assert.InDelta(t, 0.5, cmd.Twist, 1e-9)
	assert.Equal(t, uint8(1), cmd.ModeSelect)
	assert.InDelta(t, 0.1, cmd.Aux, 1e-9)
}

func TestIBusParser_Resync(t *testing.T) {
	ch := centered()
	ch[2] = 1600
	frame := Encode(ch)

	stream := []byte{0x00, 0x20, 0x13, 0x20} // noise and a false header
	stream = append(stream, frame[:]...)

	p := NewIBusParser()
	var frames int
	for _, b := range stream {
		if p.Feed(b) == ParseFrame {
			frames++
		}
	}
	require.Equal(t, 1, frames)
	assert.InDelta(t, 0.6, p.Command().Z, 1e-9)
}

func TestIBusParser_ChecksumMismatch(t *testing.T) {
	frame := Encode(centered())
	frame[5] ^= 0x10

	p := NewIBusParser()
	var last ParseResult
	for _, b := range frame {
		last = p.Feed(b)
	}
	assert.Equal(t, ParseChecksumMismatch, last)

	// the parser is ready for the next frame
	good := Encode(centered())
	for _, b := range good {
		last = p.Feed(b)
	}
	assert.Equal(t, ParseFrame, last)
}

func TestEncodeChannels_Inverse(t *testing.T) {
	for mode := uint8(0); mode <= 2; mode++ {
		in := PilotCommand{X: -0.5, Y: 0.25, Z: 0.7, Twist: 1, ModeSelect: mode, Aux: 0.8}
		ch := EncodeChannels(in)
		assert.Equal(t, uint16(1500), ch[13])

		var raw [CommandChannels]uint16
		copy(raw[:], ch[:CommandChannels])
		out := DecodeChannels(raw)
		assert.InDelta(t, in.X, out.X, 1e-9)
		assert.InDelta(t, in.Y, out.Y, 1e-9)
		assert.InDelta(t, in.Z, out.Z, 1e-9)
		assert.InDelta(t, in.Twist, out.Twist, 1e-9)
		assert.InDelta(t, in.Aux, out.Aux, 1e-9)
		assert.Equal(t, mode, out.ModeSelect)
	}
}
