package worker

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Job is one unit of work identified by a name used in logs.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// JobResult pairs a job name with its outcome.
type JobResult struct {
	Name string
	Err  error
}

// Pool runs jobs with bounded concurrency. One job failing does not cancel
// the others; batch ingestion wants every document attempted and a report at
// the end.
type Pool struct {
	workers int64
	logger  *slog.Logger
}

// NewPool creates a pool running at most workers jobs at once.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: int64(workers), logger: logger}
}

// Run executes all jobs and returns one result per job, in job order. It
// stops admitting new jobs when ctx is cancelled; jobs already running finish.
func (p *Pool) Run(ctx context.Context, jobs []Job) []JobResult {
	sem := semaphore.NewWeighted(p.workers)
	results := make([]JobResult, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = JobResult{Name: job.Name, Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer sem.Release(1)

			err := job.Run(ctx)
			if err != nil {
				p.logger.Warn("job_failed",
					slog.String("job", job.Name),
					slog.String("error", err.Error()))
			}
			results[i] = JobResult{Name: job.Name, Err: err}
		}(i, job)
	}
	wg.Wait()

	return results
}
