package radio

import (
	"fmt"
)

// FlySky iBus framing. A frame is the header byte followed by a 31 byte payload:
// the second header byte, 14 little-endian channel words and a 16 bit checksum.
const (
	IBusHeader1      = 0x20
	IBusHeader2      = 0x40
	IBusChannels     = 14
	IBusPayloadSize  = 1 + IBusChannels*2 + 2
	IBusBaudRate     = 115200
	ibusChecksumSeed = 0xFFFF - IBusHeader1
	ibusChecksumAt   = IBusPayloadSize - 2
)

// IBusPayload is a frame with the leading header byte stripped.
type IBusPayload [IBusPayloadSize]byte

// Checksum computes the expected checksum of a payload.
func Checksum(p *IBusPayload) uint16 {
	sum := uint16(ibusChecksumSeed)
	for _, b := range p[:ibusChecksumAt] {
		sum -= uint16(b)
	}
	return sum
}

// received returns the checksum carried by the payload.
func (p *IBusPayload) received() uint16 {
	return uint16(p[ibusChecksumAt+1])<<8 | uint16(p[ibusChecksumAt])
}

// Validate checks the payload checksum.
func Validate(p *IBusPayload) error {
	if want, got := Checksum(p), p.received(); want != got {
		return fmt.Errorf("%w: computed %#04x, received %#04x", ErrChecksumMismatch, want, got)
	}
	return nil
}

// Channel returns raw channel i (0-based) of the payload.
func (p *IBusPayload) Channel(i int) uint16 {
	return uint16(p[1+2*i]) | uint16(p[2+2*i])<<8
}

// Decode converts a validated payload into a PilotCommand.
func Decode(p *IBusPayload) PilotCommand {
	var raw [CommandChannels]uint16
	for i := range raw {
		raw[i] = p.Channel(i)
	}
	return DecodeChannels(raw)
}

// Encode builds a complete frame, header byte included, carrying the given channels.
func Encode(channels [IBusChannels]uint16) [IBusPayloadSize + 1]byte {
	var frame [IBusPayloadSize + 1]byte
	frame[0] = IBusHeader1

	var p IBusPayload
	p[0] = IBusHeader2
	for i, v := range channels {
		p[1+2*i] = byte(v)
		p[2+2*i] = byte(v >> 8)
	}
	sum := Checksum(&p)
	p[ibusChecksumAt] = byte(sum)
	p[ibusChecksumAt+1] = byte(sum >> 8)

	copy(frame[1:], p[:])
	return frame
}

// ParseResult reports what a single fed byte completed.
type ParseResult uint8

const (
	ParseIncomplete ParseResult = iota
	ParseFrame
	ParseChecksumMismatch
)

// State machine states for iBus parsing
type ibusState uint8

const (
	waitingForHeader1 ibusState = iota
	waitingForHeader2
	readingPayload
)

// IBusParser reassembles iBus frames from a byte stream.
type IBusParser struct {
	state   ibusState
	payload IBusPayload
	index   int
	command PilotCommand
}

// NewIBusParser returns a parser waiting for a frame header.
func NewIBusParser() *IBusParser {
	return &IBusParser{}
}

// Feed consumes one byte. When it returns ParseFrame, Command holds the decoded frame.
func (p *IBusParser) Feed(b byte) ParseResult {
	switch p.state {
	case waitingForHeader1:
		if b == IBusHeader1 {
			p.state = waitingForHeader2
		}

	case waitingForHeader2:
		switch b {
		case IBusHeader2:
			p.payload[0] = b
			p.index = 1
			p.state = readingPayload
		case IBusHeader1:
			// stay: this byte may be the real header
		default:
			p.state = waitingForHeader1
		}

	case readingPayload:
		p.payload[p.index] = b
		p.index++
		if p.index < IBusPayloadSize {
			return ParseIncomplete
		}

		p.Reset()
		if Validate(&p.payload) != nil {
			return ParseChecksumMismatch
		}
		p.command = Decode(&p.payload)
		return ParseFrame
	}

	return ParseIncomplete
}

// Command returns the most recently decoded command.
func (p *IBusParser) Command() PilotCommand {
	return p.command
}

// Reset drops any partially received frame.
func (p *IBusParser) Reset() {
	p.state = waitingForHeader1
	p.index = 0
}
