// Package serialrx reads a radio receiver attached to a host serial port.
package serialrx

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/dezash123/drone/internal/radio"
)

// Poll timeout of the underlying port. A read that times out reports no new data.
const readTimeout = time.Millisecond

// Port is the part of serial.Port used by Source.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// Source is a radio.ByteSource over a serial port.
type Source struct {
	port Port
	buf  []byte
	head int
	tail int
}

var _ radio.ByteSource = (*Source)(nil)

// BaudRate returns the line rate of a receiver protocol.
func BaudRate(protocol string) (int, error) {
	switch protocol {
	case radio.ProtocolIBus, "":
		return radio.IBusBaudRate, nil
	case radio.ProtocolCRSF, radio.ProtocolELRS:
		return radio.CRSFBaudRate, nil
	default:
		return 0, fmt.Errorf("unknown receiver protocol %q", protocol)
	}
}

// Open opens a serial port at 8N1 for the given receiver protocol.
func Open(name, protocol string) (*Source, error) {
	baud, err := BaudRate(protocol)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}
	if err = port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}
	if err = port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("flushing input: %w", err)
	}

	return New(port), nil
}

// New wraps an open port.
func New(port Port) *Source {
	return &Source{port: port, buf: make([]byte, 256)}
}

// ReadByte returns the next buffered byte, reading the port when the buffer is empty.
// It returns radio.ErrNoNewData when the port has nothing within the poll timeout.
func (s *Source) ReadByte() (byte, error) {
	if s.head == s.tail {
		n, err := s.port.Read(s.buf)
		if err != nil {
			return 0, fmt.Errorf("reading serial port: %w", err)
		}
		if n == 0 {
			return 0, radio.ErrNoNewData
		}
		s.head, s.tail = 0, n
	}

	b := s.buf[s.head]
	s.head++
	return b, nil
}

// Close closes the port.
func (s *Source) Close() error {
	return s.port.Close()
}
