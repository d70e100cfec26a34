package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool manages a fixed set of workers. Wait returns results in submission order
// regardless of completion order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	submitted int
	collected map[int]Result
	done      chan struct{}
}

// NewPool creates a new worker pool bound to ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2), // Buffered to prevent blocking
		results:    make(chan indexedResult, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		collected:  make(map[int]Result),
		done:       make(chan struct{}),
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	go func() {
		defer close(p.done)
		for r := range p.results {
			p.mu.Lock()
			p.collected[r.index] = r.result
			p.mu.Unlock()
		}
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := item.job.Execute(p.ctx)
			select {
			case p.results <- indexedResult{index: item.index, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false once the pool is shut down or its context is done.
// Submit must not be called after Wait.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexedJob{index: index, job: job}:
		return true
	}
}

// Wait waits for all submitted jobs and returns one slot per submission, in
// submission order. A slot is nil if its job never ran because the pool was cancelled.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.done
	p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, p.submitted)
	for i := range results {
		results[i] = p.collected[i]
	}
	return results
}

// Shutdown stops the pool immediately, abandoning queued jobs
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
