package radio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueSource is a ByteSource over a byte slice with an optional error after it drains.
type queueSource struct {
	data []byte
	err  error
}

func (q *queueSource) ReadByte() (byte, error) {
	if len(q.data) == 0 {
		if q.err != nil {
			err := q.err
			q.err = nil
			return 0, err
		}
		return 0, ErrNoNewData
	}
	b := q.data[0]
	q.data = q.data[1:]
	return b, nil
}

func (q *queueSource) push(b ...byte) {
	q.data = append(q.data, b...)
}

func TestReceiver_NoNewData(t *testing.T) {
	r := NewReceiver(&queueSource{}, NewIBusParser())

	_, err := r.Read()
	assert.ErrorIs(t, err, ErrNoNewData)
	assert.Equal(t, FaultNoNewData, Classify(err))
}

func TestReceiver_NewestFrameWins(t *testing.T) {
	src := &queueSource{}
	first := centered()
	first[2] = 1200
	second := centered()
	second[2] = 1800
	f1, f2 := Encode(first), Encode(second)
	src.push(f1[:]...)
	src.push(f2[:]...)

	r := NewReceiver(src, NewIBusParser())
	cmd, err := r.Read()
	require.NoError(t, err)
	assert.InDelta(t, 0.8, cmd.Z, 1e-9)

	_, err = r.Read()
	assert.ErrorIs(t, err, ErrNoNewData)
}

func TestReceiver_PartialFrameAcrossReads(t *testing.T) {
	src := &queueSource{}
	frame := Encode(centered())
	src.push(frame[:10]...)

	r := NewReceiver(src, NewIBusParser())
	_, err := r.Read()
	assert.ErrorIs(t, err, ErrNoNewData)

	src.push(frame[10:]...)
	cmd, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cmd.X)
}

func TestReceiver_ChecksumMismatch(t *testing.T) {
	src := &queueSource{}
	frame := Encode(centered())
	frame[3] ^= 0x01
	src.push(frame[:]...)

	r := NewReceiver(src, NewIBusParser())
	_, err := r.Read()
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Equal(t, FaultChecksumMismatch, Classify(err))
}

func TestReceiver_Overrun(t *testing.T) {
	frame := Encode(centered())
	src := &queueSource{data: append([]byte(nil), frame[:12]...), err: ErrHardwareOverrun}

	r := NewReceiver(src, NewIBusParser())
	_, err := r.Read()
	assert.ErrorIs(t, err, ErrHardwareOverrun)
	assert.Equal(t, FaultHardwareOverrun, Classify(err))

	// the partial frame was discarded, a complete one decodes
	src.push(frame[:]...)
	_, err = r.Read()
	assert.NoError(t, err)
}

func TestReceiver_OtherError(t *testing.T) {
	boom := errors.New("framing error")
	r := NewReceiver(&queueSource{err: boom}, nil)

	_, err := r.Read()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, FaultOther, Classify(err))
}

func TestReceiver_MaxBytes(t *testing.T) {
	src := &queueSource{}
	frame := Encode(centered())
	src.push(frame[:]...)

	r := NewReceiver(src, NewIBusParser(), WithMaxBytes(8))
	_, err := r.Read()
	assert.ErrorIs(t, err, ErrNoNewData)
	assert.Len(t, src.data, len(frame)-8)
}

func TestNewParser(t *testing.T) {
	p, err := NewParser(ProtocolIBus)
	require.NoError(t, err)
	assert.IsType(t, &IBusParser{}, p)

	p, err = NewParser(ProtocolELRS)
	require.NoError(t, err)
	assert.IsType(t, &CRSFParser{}, p)

	_, err = NewParser("sbus")
	assert.Error(t, err)
}
