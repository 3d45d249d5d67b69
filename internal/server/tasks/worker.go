package tasks

import (
	"context"
	"sync"

	"github.com/termstore/termstore/internal/common"
	"github.com/termstore/termstore/internal/logging"
)

type job struct {
	resourceType string
	id           int64
}

// Worker is a bounded-queue dispatcher backed by a goroutine pool. Dispatch
// never blocks: when the queue is full it fails with common.ErrQueueFull and
// the caller keeps its last-good cached value. A failed recalculation is
// logged and dropped; it never corrupts the previously stored checksums.
type Worker struct {
	recalc  Recalculator
	logger  logging.Logger
	queue   chan job
	workers int

	mu      sync.Mutex
	started bool
}

func NewWorker(recalc Recalculator, logger logging.Logger, workers, queueSize int) *Worker {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Worker{
		recalc:  recalc,
		logger:  logger.With("module", "checksum_worker"),
		queue:   make(chan job, queueSize),
		workers: workers,
	}
}

// Dispatch enqueues a recalculation request without blocking.
func (w *Worker) Dispatch(ctx context.Context, resourceType string, id int64) error {
	select {
	case w.queue <- job{resourceType: resourceType, id: id}:
		return nil
	default:
		return common.ErrQueueFull
	}
}

// Run starts the pool and blocks until ctx is canceled and the queue is
// drained. It is safe to call once.
func (w *Worker) Run(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.logger.Info(ctx, "starting checksum workers", "workers", w.workers, "queue", cap(w.queue))

	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
	w.logger.Info(ctx, "checksum workers stopped")
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// Drain what is already queued, then exit.
			for {
				select {
				case j := <-w.queue:
					w.process(j)
				default:
					return
				}
			}
		case j := <-w.queue:
			w.process(j)
		}
	}
}

func (w *Worker) process(j job) {
	// Recalculation runs against a fresh context: the enqueuing request is
	// long gone by the time the job executes.
	ctx := context.Background()
	if err := w.recalc.Recalculate(ctx, j.resourceType, j.id); err != nil {
		w.logger.Error(ctx, "checksum recalculation failed", "type", j.resourceType, "id", j.id, "error", err.Error())
	}
}
