package simpleasset

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

const defaultQueueCapacity = 256

// dispatcher feeds derivative jobs to a fixed pool of workers through a
// bounded channel. When the channel is full the enqueueing goroutine runs
// the job itself, so producers slow down instead of the queue growing
// without bound.
type dispatcher struct {
	jobs      chan DerivativeJob
	run       func(context.Context, DerivativeJob)
	logger    *slog.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func defaultWorkerCount() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}

func newDispatcher(workers, queue int, run func(context.Context, DerivativeJob), logger *slog.Logger) *dispatcher {
	if workers <= 0 {
		workers = defaultWorkerCount()
	}
	if queue <= 0 {
		queue = defaultQueueCapacity
	}
	d := &dispatcher{
		jobs:   make(chan DerivativeJob, queue),
		run:    run,
		logger: logger,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue hands the job to the pool, or runs it inline on the caller's
// goroutine when the queue is full.
func (d *dispatcher) Enqueue(ctx context.Context, job DerivativeJob) {
	select {
	case d.jobs <- job:
	default:
		d.logger.Warn("derivative queue full, running job on caller", "asset_id", job.AssetID)
		d.run(ctx, job)
	}
}

func (d *dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.run(context.Background(), job)
	}
}

// Close stops accepting jobs and waits for the workers to drain the queue.
// Callers must stop enqueueing before Close.
func (d *dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}
