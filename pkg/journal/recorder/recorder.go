package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/iptvrelay/pkg/journal"
)

// Config contains configuration for the journal recorder.
type Config struct {
	// AsyncBuffer is the capacity of the record queue.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds one storage write.
	// Default: 5s
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Stats counts recorder activity since start.
type Stats struct {
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
	Pending int   `json:"pending"`
}

// Recorder writes session records to storage from a background worker.
// Record never blocks the stream that is closing: when the queue is full
// the record is dropped and counted.
type Recorder struct {
	storage journal.Storage
	config  *Config
	queue   chan *journal.Record
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage journal.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		queue:   make(chan *journal.Record, config.AsyncBuffer),
		logger:  slog.Default().With("component", "journal.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("journal recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// Record enqueues record for writing and assigns its ID if unset.
// It returns a RecorderError when the record was dropped.
func (r *Recorder) Record(record *journal.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return journal.NewRecorderError(record.ID, journal.ErrClosed)
	}

	select {
	case r.queue <- record:
		return nil
	default:
		r.dropped.Add(1)
		r.logger.Warn("journal queue full, dropping record",
			"record_id", record.ID,
			"session_id", record.SessionID,
			"capacity", r.config.AsyncBuffer,
		)
		return journal.NewRecorderError(record.ID, errQueueFull)
	}
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
		Pending: len(r.queue),
	}
}

// Close stops accepting records and waits until queued ones are written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("journal recorder shut down",
		"written", r.written.Load(),
		"dropped", r.dropped.Load(),
	)
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for record := range r.queue {
		r.writeRecord(record)
	}
}

func (r *Recorder) writeRecord(record *journal.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store journal record",
			"record_id", record.ID,
			"session_id", record.SessionID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	if d := time.Since(start); d > r.config.WriteTimeout/2 {
		r.logger.Warn("slow journal write",
			"record_id", record.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}
