package serialrx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dezash123/drone/internal/radio"
)

// chunkPort returns one queued chunk per Read, and 0 bytes when empty like a timed out port.
type chunkPort struct {
	chunks [][]byte
	err    error
	closed bool
}

func (p *chunkPort) Read(b []byte) (int, error) {
	if p.err != nil {
		return 0, p.err
	}
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *chunkPort) Close() error {
	p.closed = true
	return nil
}

func TestSource_TimeoutIsNoNewData(t *testing.T) {
	s := New(&chunkPort{})
	_, err := s.ReadByte()
	assert.ErrorIs(t, err, radio.ErrNoNewData)
}

func TestSource_FeedsReceiver(t *testing.T) {
	cmd := radio.PilotCommand{X: 0.5, Z: 0.25, ModeSelect: 1}
	frame := radio.Encode(radio.EncodeChannels(cmd))

	// a frame split across two port reads
	port := &chunkPort{chunks: [][]byte{frame[:10], frame[10:]}}
	rx := radio.NewReceiver(New(port), radio.NewIBusParser())

	got, err := rx.Read()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.X, 1e-9)
	assert.InDelta(t, 0.25, got.Z, 1e-9)
	assert.Equal(t, uint8(1), got.ModeSelect)

	_, err = rx.Read()
	assert.ErrorIs(t, err, radio.ErrNoNewData)
}

func TestSource_PortError(t *testing.T) {
	boom := errors.New("device unplugged")
	s := New(&chunkPort{err: boom})

	_, err := s.ReadByte()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, radio.FaultOther, radio.Classify(err))
}

func TestSource_Close(t *testing.T) {
	port := &chunkPort{}
	require.NoError(t, New(port).Close())
	assert.True(t, port.closed)
}

func TestBaudRate(t *testing.T) {
	baud, err := BaudRate(radio.ProtocolIBus)
	require.NoError(t, err)
	assert.Equal(t, 115200, baud)

	baud, err = BaudRate(radio.ProtocolELRS)
	require.NoError(t, err)
	assert.Equal(t, 420000, baud)

	_, err = BaudRate("sbus")
	assert.Error(t, err)
}
