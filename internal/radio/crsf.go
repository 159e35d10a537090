package radio

// CRSF (Crossfire) receiver support, also used by ExpressLRS receivers.
// Only RC channel frames are decoded; other frame types are skipped.

const (
	CRSFSyncByte         = 0xC8
	CRSFFrameRCChannels  = 0x16
	CRSFChannels         = 16
	CRSFBaudRate         = 420000
	crsfRCPayloadSize    = 22
	crsfRCLength         = 1 + crsfRCPayloadSize + 1 // type + payload + crc
	CRSFFrameSize        = 2 + crsfRCLength
	crsfMaxLength        = 62
	crsfChannelValueMin  = 172
	crsfChannelValueMax  = 1811
	crsfChannelMid       = 992
	crsfMinMicroseconds  = 988
	crsfMaxMicroseconds  = 2012
	crsfChannelBits      = 11
	crsfChannelMask      = 1<<crsfChannelBits - 1
	crsfPolynomial       = 0xD5
)

// CRSF State Machine States
type crsfState uint8

const (
	crsfWaitSync crsfState = iota
	crsfReadLength
	crsfReadFrame
)

// CRSFParser reassembles CRSF RC channel frames from a byte stream.
type CRSFParser struct {
	state   crsfState
	length  int
	buf     [crsfMaxLength]byte
	index   int
	command PilotCommand
	raw     [CRSFChannels]uint16
}

// NewCRSFParser returns a parser waiting for a sync byte.
func NewCRSFParser() *CRSFParser {
	return &CRSFParser{}
}

// Feed consumes one byte. When it returns ParseFrame, Command holds the decoded frame.
func (p *CRSFParser) Feed(b byte) ParseResult {
	switch p.state {
	case crsfWaitSync:
		if b == CRSFSyncByte {
			p.state = crsfReadLength
		}

	case crsfReadLength:
		// The length byte counts type, payload and CRC. The minimum is 2 (type + CRC).
		if b < 2 || b > crsfMaxLength {
			p.Reset()
			return ParseIncomplete
		}
		p.length = int(b)
		p.index = 0
		p.state = crsfReadFrame

	case crsfReadFrame:
		p.buf[p.index] = b
		p.index++
		if p.index < p.length {
			return ParseIncomplete
		}

		frame := p.buf[:p.length]
		p.Reset()

		// The CRC covers the type byte and the payload.
		if crc8(frame[:len(frame)-1]) != frame[len(frame)-1] {
			return ParseChecksumMismatch
		}
		if frame[0] != CRSFFrameRCChannels || len(frame) != crsfRCLength {
			return ParseIncomplete
		}

		p.raw = unpackCRSFChannels(frame[1 : 1+crsfRCPayloadSize])
		var raw [CommandChannels]uint16
		for i := range raw {
			raw[i] = CRSFToMicroseconds(p.raw[i])
		}
		p.command = DecodeChannels(raw)
		return ParseFrame
	}

	return ParseIncomplete
}

// Command returns the most recently decoded command.
func (p *CRSFParser) Command() PilotCommand {
	return p.command
}

// Channels returns the raw 11 bit channel values of the most recent frame.
func (p *CRSFParser) Channels() [CRSFChannels]uint16 {
	return p.raw
}

// Reset drops any partially received frame.
func (p *CRSFParser) Reset() {
	p.state = crsfWaitSync
	p.index = 0
	p.length = 0
}

// CRSFToMicroseconds maps an 11 bit CRSF channel value (172..1811) to a pulse width (988..2012).
func CRSFToMicroseconds(v uint16) uint16 {
	return uint16((int(v)-crsfChannelMid)*5/8 + 1500)
}

// MicrosecondsToCRSF is the inverse of CRSFToMicroseconds. Pulse widths outside
// 988..2012 are clamped first.
func MicrosecondsToCRSF(us uint16) uint16 {
	us = max(crsfMinMicroseconds, min(us, crsfMaxMicroseconds))
	return uint16((int(us)-1500)*8/5 + crsfChannelMid)
}

// unpackCRSFChannels unpacks sixteen little-endian 11 bit values.
func unpackCRSFChannels(payload []byte) [CRSFChannels]uint16 {
	var channels [CRSFChannels]uint16
	var bitsMerged uint
	var readValue uint32
	var readIndex int

	for n := range channels {
		for bitsMerged < crsfChannelBits {
			if readIndex >= len(payload) {
				return channels
			}
			readValue |= uint32(payload[readIndex]) << bitsMerged
			readIndex++
			bitsMerged += 8
		}
		channels[n] = uint16(readValue & crsfChannelMask)
		readValue >>= crsfChannelBits
		bitsMerged -= crsfChannelBits
	}
	return channels
}

// EncodeCRSF builds a complete RC channels frame carrying the given 11 bit values.
func EncodeCRSF(channels [CRSFChannels]uint16) [CRSFFrameSize]byte {
	var frame [CRSFFrameSize]byte
	frame[0] = CRSFSyncByte
	frame[1] = crsfRCLength
	frame[2] = CRSFFrameRCChannels

	payload := frame[3 : 3+crsfRCPayloadSize]
	var bits uint
	var acc uint32
	var idx int
	for _, v := range channels {
		acc |= uint32(v&crsfChannelMask) << bits
		bits += crsfChannelBits
		for bits >= 8 {
			payload[idx] = byte(acc)
			idx++
			acc >>= 8
			bits -= 8
		}
	}

	frame[CRSFFrameSize-1] = crc8(frame[2 : CRSFFrameSize-1])
	return frame
}

// crc8 is CRC8 DVB-S2 as used by CRSF.
func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crsfPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
