// Package worker provides the concurrency plumbing shared by the
// ingestion and resolution cycles: a bounded job pool, per-domain rate
// limiting, and the interval scheduler that drives cycles.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of pipeline work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job hands back
type Result interface {
	Err() error
}

// Pool runs jobs on a fixed number of goroutines. Results are collected
// as jobs finish, so callers may submit any number of jobs before
// calling Wait. Submit then Wait; a pool is single-use.
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	collected []Result
	wg        sync.WaitGroup
	collectWg sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	resOnce   sync.Once
}

// NewPool creates a pool with the given number of workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.collectWg.Add(1)
	go p.collect()
}

// collect drains results while workers run. Without this, a full result
// buffer would block the workers and, through the job queue, Submit.
func (p *Pool) collect() {
	defer p.collectWg.Done()
	for res := range p.results {
		p.collected = append(p.collected, res)
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			res := job.Execute(p.ctx)
			select {
			case p.results <- res:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. Dropped silently once the pool's context is done;
// the caller sees the cancellation through Wait's short result list.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it, and returns
// every collected result
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()
	p.closeResults()
	p.collectWg.Wait()
	return p.collected
}

// Shutdown cancels in-flight jobs and releases the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
	p.collectWg.Wait()
}

func (p *Pool) closeResults() {
	p.resOnce.Do(func() {
		close(p.results)
	})
}
