package radio

import (
	"errors"
	"fmt"
)

// Supported receiver protocols
const (
	ProtocolIBus = "ibus"
	ProtocolCRSF = "crsf"
	ProtocolELRS = "elrs"
)

// ByteSource is a UART-like byte stream. ReadByte returns ErrNoNewData when nothing is
// buffered and ErrHardwareOverrun when the source dropped bytes.
type ByteSource interface {
	ReadByte() (byte, error)
}

// FrameParser reassembles frames of one protocol.
type FrameParser interface {
	Feed(b byte) ParseResult
	Command() PilotCommand
	Reset()
}

// NewParser returns the frame parser for a protocol name.
func NewParser(protocol string) (FrameParser, error) {
	switch protocol {
	case ProtocolIBus, "":
		return NewIBusParser(), nil
	case ProtocolCRSF, ProtocolELRS:
		return NewCRSFParser(), nil
	default:
		return nil, fmt.Errorf("unknown receiver protocol %q", protocol)
	}
}

// WithMaxBytes bounds the number of bytes consumed by one Read call.
func WithMaxBytes(n int) func(r *Receiver) {
	return func(r *Receiver) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// Receiver reads validated pilot commands from a byte source.
type Receiver struct {
	src      ByteSource
	parser   FrameParser
	maxBytes int
}

// NewReceiver creates a Receiver. By default one Read consumes at most two frames worth of bytes.
func NewReceiver(src ByteSource, parser FrameParser, options ...func(r *Receiver)) *Receiver {
	r := Receiver{
		src:      src,
		parser:   parser,
		maxBytes: 2 * (IBusPayloadSize + 1),
	}
	if r.parser == nil {
		r.parser = NewIBusParser()
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Read drains the buffered bytes and returns the newest valid command. Without one it returns
// ErrChecksumMismatch if a corrupt frame was seen, ErrHardwareOverrun if the source overran,
// ErrNoNewData otherwise, or the source error wrapped.
func (r *Receiver) Read() (PilotCommand, error) {
	var (
		cmd      PilotCommand
		fresh    bool
		mismatch bool
	)

	for i := 0; i < r.maxBytes; i++ {
		b, err := r.src.ReadByte()
		if err != nil {
			if errors.Is(err, ErrNoNewData) {
				break
			}
			// bytes were lost, any partial frame is garbage
			r.parser.Reset()
			if fresh {
				return cmd, nil
			}
			if errors.Is(err, ErrHardwareOverrun) {
				return PilotCommand{}, err
			}
			return PilotCommand{}, fmt.Errorf("reading receiver: %w", err)
		}

		switch r.parser.Feed(b) {
		case ParseFrame:
			cmd = r.parser.Command()
			fresh = true
		case ParseChecksumMismatch:
			mismatch = true
		}
	}

	switch {
	case fresh:
		return cmd, nil
	case mismatch:
		return PilotCommand{}, ErrChecksumMismatch
	default:
		return PilotCommand{}, ErrNoNewData
	}
}
