package task

import (
	"context"
	"sync"
)

// workerPool is a bounded goroutine pool for running ready tasks
// concurrently. Submit blocks when the pool is at capacity and respects
// context cancellation while waiting.
type workerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = 1
	}
	return &workerPool{sem: make(chan struct{}, size)}
}

func (p *workerPool) submit(ctx context.Context, fn func(ctx context.Context)) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		fn(ctx)
	}()
	return nil
}

// wait blocks until all submitted work completes.
func (p *workerPool) wait() {
	p.wg.Wait()
}
