package storage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/truongquangDat1103/robot-homeguard/types"
)

// writeJob is a single queued persistence operation
type writeJob struct {
	readings []types.SensorReading
	entry    *types.BehaviorLogEntry
}

// WriterStats reports async writer activity
type WriterStats struct {
	Enqueued int64 `json:"enqueued"`
	Written  int64 `json:"written"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
}

// AsyncWriter decouples the hub event loop from persistence latency.
// Writes are queued on a bounded channel and flushed by a single
// background goroutine. A full queue drops the write and increments a
// counter; ingest must never block on storage.
type AsyncWriter struct {
	store  Store
	queue  chan writeJob
	logger *slog.Logger

	enqueued atomic.Int64
	written  atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}
	done      chan struct{}
}

// NewAsyncWriter creates a writer over the given store with a bounded queue
func NewAsyncWriter(store Store, queueSize int, logger *slog.Logger) *AsyncWriter {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncWriter{
		store:    store,
		queue:    make(chan writeJob, queueSize),
		logger:   logger.With("component", "storage.AsyncWriter"),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background flush goroutine
func (w *AsyncWriter) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

// run drains the queue until shutdown, then flushes what remains
func (w *AsyncWriter) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case job := <-w.queue:
			w.flush(ctx, job)
		case <-w.shutdown:
			for {
				select {
				case job := <-w.queue:
					w.flush(ctx, job)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *AsyncWriter) flush(ctx context.Context, job writeJob) {
	var err error
	if job.entry != nil {
		err = w.store.AppendBehaviorEntry(ctx, *job.entry)
	} else {
		err = w.store.AppendSensorReadings(ctx, job.readings)
	}

	if err != nil {
		w.failed.Add(1)
		w.logger.Warn("persistence write failed", "error", err)
		return
	}
	w.written.Add(1)
}

// EnqueueSensorReadings queues a batch for persistence without blocking.
// Returns false if the queue is full and the batch was dropped.
func (w *AsyncWriter) EnqueueSensorReadings(readings []types.SensorReading) bool {
	if len(readings) == 0 {
		return true
	}
	return w.enqueue(writeJob{readings: readings})
}

// EnqueueBehaviorEntry queues a behavior transition for persistence without
// blocking. Returns false if the queue is full and the entry was dropped.
func (w *AsyncWriter) EnqueueBehaviorEntry(entry types.BehaviorLogEntry) bool {
	return w.enqueue(writeJob{entry: &entry})
}

func (w *AsyncWriter) enqueue(job writeJob) bool {
	select {
	case w.queue <- job:
		w.enqueued.Add(1)
		return true
	default:
		w.dropped.Add(1)
		w.logger.Warn("persistence queue full, dropping write",
			"queue_size", cap(w.queue))
		return false
	}
}

// Stats returns a snapshot of writer activity
func (w *AsyncWriter) Stats() WriterStats {
	return WriterStats{
		Enqueued: w.enqueued.Load(),
		Written:  w.written.Load(),
		Dropped:  w.dropped.Load(),
		Failed:   w.failed.Load(),
	}
}

// Stop signals shutdown and waits up to timeout for the queue to flush
func (w *AsyncWriter) Stop(timeout time.Duration) error {
	var err error
	w.stopOnce.Do(func() {
		close(w.shutdown)
		select {
		case <-w.done:
		case <-time.After(timeout):
			err = ErrFlushTimeout
		}
	})
	return err
}
