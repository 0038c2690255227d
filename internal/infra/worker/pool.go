package worker

import (
	"context"
	"errors"
	"sync"
)

// Task is one unit of work run by the pool.
type Task func(ctx context.Context)

// Pool bounds the number of concurrent outbound sends across all notify
// requests. Submit blocks instead of dropping: a saturated pool delays a
// fan-out, it never silently loses a per-chat send.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	n    int
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 8
	}
	return &Pool{jobs: make(chan Task), n: workers}
}

// Start launches the workers; they drain until ctx is done.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-p.jobs:
					if task != nil {
						task(ctx)
					}
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited after their context ended.
func (p *Pool) Wait() { p.wg.Wait() }

// Submit hands a task to a worker, blocking until one is free.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
