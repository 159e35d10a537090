// Package blackbox records control frames to a SQLite flight log without blocking the control loop.
package blackbox

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dezash123/drone/internal/control"
	"github.com/dezash123/drone/internal/flight"
)

const (
	defaultQueueSize     = 1024
	defaultBatchSize     = 128
	defaultFlushInterval = 250 * time.Millisecond
)

// Record is one stored control frame.
type Record struct {
	Cycle     uint64
	Timestamp time.Time
	Mode      string
	DT        float64

	Roll, Pitch float64

	X, Y, Z, Twist, Aux float64

	FailedIMU, FailedRadio uint16

	Duties control.Duties
}

// NewRecord flattens a control frame.
func NewRecord(f flight.Frame, at time.Time) Record {
	s := f.State
	return Record{
		Cycle:       s.Cycle,
		Timestamp:   at,
		Mode:        s.Mode.String(),
		DT:          f.DT,
		Roll:        s.TrueAngle.Roll,
		Pitch:       s.TrueAngle.Pitch,
		X:           s.Command.X,
		Y:           s.Command.Y,
		Z:           s.Command.Z,
		Twist:       s.Command.Twist,
		Aux:         s.Command.Aux,
		FailedIMU:   s.FailedIMU,
		FailedRadio: s.FailedRadio,
		Duties:      f.Duties,
	}
}

// FrameStore persists batches of records.
type FrameStore interface {
	StoreFrames(ctx context.Context, sessionID int64, records []Record) error
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) func(r *Recorder) {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithQueueSize sets how many frames may wait for the writer before new ones are dropped.
func WithQueueSize(n int) func(r *Recorder) {
	return func(r *Recorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithBatchSize sets the number of frames written per transaction.
func WithBatchSize(n int) func(r *Recorder) {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithFlushInterval sets how long a partial batch may wait.
func WithFlushInterval(d time.Duration) func(r *Recorder) {
	return func(r *Recorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// Recorder is a flight.Observer that queues frames and writes them in batches on its own goroutine.
// Observe never blocks; frames that do not fit in the queue are dropped and counted.
type Recorder struct {
	store     FrameStore
	sessionID int64
	logger    *slog.Logger
	now       func() time.Time

	queueSize     int
	batchSize     int
	flushInterval time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Record
	done   chan struct{}

	written atomic.Uint64
	dropped atomic.Uint64
	err     error
}

var _ flight.Observer = (*Recorder)(nil)

// NewRecorder starts a recorder writing to sessionID of store. Close must be called to flush it.
func NewRecorder(store FrameStore, sessionID int64, options ...func(r *Recorder)) *Recorder {
	r := Recorder{
		store:         store,
		sessionID:     sessionID,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:           time.Now,
		queueSize:     defaultQueueSize,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		done:          make(chan struct{}),
	}
	for _, option := range options {
		option(&r)
	}
	r.queue = make(chan Record, r.queueSize)

	go r.run()
	return &r
}

// Observe queues a frame.
func (r *Recorder) Observe(f flight.Frame) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}
	select {
	case r.queue <- NewRecord(f, r.now()):
	default:
		r.dropped.Add(1)
	}
}

// Written returns the number of frames stored so far.
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// Dropped returns the number of frames lost to a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops accepting frames, flushes the queue and returns the last write error.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	<-r.done
	r.logger.Info("blackbox closed",
		"session", r.sessionID,
		"written", humanize.Comma(int64(r.Written())),
		"dropped", humanize.Comma(int64(r.Dropped())),
	)
	return r.err
}

func (r *Recorder) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, r.batchSize)
	for {
		select {
		case rec, ok := <-r.queue:
			if !ok {
				r.flush(batch)
				return
			}
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Recorder) flush(batch []Record) {
	if len(batch) == 0 {
		return
	}
	if err := r.store.StoreFrames(context.Background(), r.sessionID, batch); err != nil {
		r.err = err
		r.logger.Error("writing frames", "frames", len(batch), "error", err)
		return
	}
	r.written.Add(uint64(len(batch)))
}
