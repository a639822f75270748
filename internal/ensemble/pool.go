package ensemble

import (
	"context"
	"runtime"
	"sync"
)

// Pool bounds how many scoring requests run against the shared
// classifier sessions at once. Request handlers block in Do until a
// worker picks their job up, so a burst of uploads queues instead of
// piling onto the sessions.
type Pool struct {
	workers  int
	jobQueue chan func()
	once     sync.Once
}

// NewPool creates a pool with the given worker count, defaulting to
// the CPU count.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start launches the workers. Safe to call more than once.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	for job := range p.jobQueue {
		job()
	}
}

// Do runs job on a pool worker and waits for it to finish, honoring
// ctx while queued or waiting.
func (p *Pool) Do(ctx context.Context, job func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		job()
	}

	select {
	case p.jobQueue <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the pool down. Submitted jobs still drain.
func (p *Pool) Close() {
	close(p.jobQueue)
}
