// Package warmup precomputes ranking key lists with a bounded worker pool.
package warmup

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/pkg/logger"
	"github.com/okian/partystats/pkg/metrics"
)

// Job is one key list to compute.
type Job struct {
	ElectionCode string
	PartyID      string
	Unit         area.Unit
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%s/%s", j.ElectionCode, j.PartyID, j.Unit)
}

// Refresher recomputes and stores one key list, returning its length.
type Refresher interface {
	Refresh(ctx context.Context, electionCode, partyID string, unit area.Unit) (int, error)
}

// Summary describes a finished run.
type Summary struct {
	Jobs     int
	Failed   int
	Keys     int
	Duration time.Duration
	// Errors holds the first failures, at most maxReportedErrors.
	Errors []error
}

const maxReportedErrors = 10

type result struct {
	job  Job
	keys int
	err  error
}

// worker drains the job channel until it is closed or ctx is done.
type worker struct {
	name      string
	jobs      <-chan Job
	results   chan<- result
	refresher Refresher
	logger    logger.Logger
}

func (w *worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.results <- w.process(ctx, job)
		}
	}
}

func (w *worker) process(ctx context.Context, job Job) result {
	metrics.AddWarmInFlight(1)
	defer metrics.AddWarmInFlight(-1)

	n, err := w.refresher.Refresh(ctx, job.ElectionCode, job.PartyID, job.Unit)
	if err != nil {
		metrics.RecordWarmJob("error")
		w.logger.Error(ctx, "warm-up job failed", logger.String("job", job.String()), logger.Error(err))
		return result{job: job, err: fmt.Errorf("%s: %w", job, err)}
	}
	metrics.RecordWarmJob("ok")
	w.logger.Debug(ctx, "warm-up job done", logger.String("job", job.String()), logger.Int("keys", n))
	return result{job: job, keys: n}
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	refresher Refresher
	workers   int
	logger    logger.Logger
}

// NewPool creates a Pool. The default size is the number of CPUs.
func NewPool(refresher Refresher, opts ...Option) *Pool {
	p := &Pool{
		refresher: refresher,
		workers:   runtime.NumCPU(),
		logger:    logger.Get().Named("warmup"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every job and waits for the workers to finish. Jobs not
// started before ctx is done are not counted.
func (p *Pool) Run(ctx context.Context, jobs []Job) Summary {
	start := time.Now()
	jobCh := make(chan Job)
	resCh := make(chan result, len(jobs))

	n := min(p.workers, max(len(jobs), 1))
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		w := &worker{
			name:      "warm-" + strconv.Itoa(i),
			jobs:      jobCh,
			results:   resCh,
			refresher: p.refresher,
		}
		w.logger = p.logger.Named(w.name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx)
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case jobCh <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()
	close(resCh)

	var sum Summary
	for r := range resCh {
		sum.Jobs++
		if r.err != nil {
			sum.Failed++
			if len(sum.Errors) < maxReportedErrors {
				sum.Errors = append(sum.Errors, r.err)
			}
			continue
		}
		sum.Keys += r.keys
	}
	sum.Duration = time.Since(start)
	p.logger.Info(ctx, "warm-up finished",
		logger.Int("jobs", sum.Jobs),
		logger.Int("failed", sum.Failed),
		logger.Duration("took", sum.Duration),
	)
	return sum
}
