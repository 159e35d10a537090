package radio

import (
	"errors"
)

var (
	// ErrChecksumMismatch is returned when a complete frame fails checksum validation.
	ErrChecksumMismatch = errors.New("radio frame checksum mismatch")

	// ErrNoNewData is returned when no complete frame arrived since the previous read.
	// Byte sources also return it when their buffer is empty.
	ErrNoNewData = errors.New("no new radio data")

	// ErrHardwareOverrun is returned by byte sources whose receive buffer overflowed.
	ErrHardwareOverrun = errors.New("radio receiver overrun")
)

// Fault classifies a radio read error for escalation and logging.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultChecksumMismatch
	FaultNoNewData
	FaultHardwareOverrun
	FaultOther
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultChecksumMismatch:
		return "checksum mismatch"
	case FaultNoNewData:
		return "no new data"
	case FaultHardwareOverrun:
		return "hardware overrun"
	default:
		return "other"
	}
}

// Classify maps an error returned by Receiver.Read to its Fault.
func Classify(err error) Fault {
	switch {
	case err == nil:
		return FaultNone
	case errors.Is(err, ErrChecksumMismatch):
		return FaultChecksumMismatch
	case errors.Is(err, ErrNoNewData):
		return FaultNoNewData
	case errors.Is(err, ErrHardwareOverrun):
		return FaultHardwareOverrun
	default:
		return FaultOther
	}
}
