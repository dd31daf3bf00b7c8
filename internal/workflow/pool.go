package workflow

import (
	"context"
	"sync"

	"github.com/vk/grmgo/internal/ctxlog"
)

// Pool runs one task closure on a fixed number of goroutines and blocks the
// caller until every one of them has returned. The join is the workflow's
// phase barrier: code after Execute never observes a partially finished
// phase.
type Pool struct {
	workers int
}

// NewPool returns a pool of the given size. A size below one degenerates to
// a single worker, which executes strictly sequentially and deterministically.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Execute spawns the workers, runs task on each of them and joins them all.
// A failure inside one worker never aborts the join; failures land in
// shared state and are inspected after the barrier.
func (p *Pool) Execute(ctx context.Context, task func(ctx context.Context, workerID int)) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool.", "workers", p.workers)

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			logger.Debug("Worker started.", "workerID", workerID)
			task(ctx, workerID)
			logger.Debug("Worker finished.", "workerID", workerID)
		}(i)
	}

	wg.Wait()
	logger.Debug("Worker pool joined.")
}
