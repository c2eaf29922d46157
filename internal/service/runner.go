package service

import (
	"context"
	"errors"
	"sync"
)

var ErrRunnerClosed = errors.New("assessment runner is shutting down")

// Runner executes assessment jobs in background goroutines. Jobs get the runner's context,
// never the context of the request that created them.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewRunner() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{ctx: ctx, cancel: cancel}
}

// Go starts fn in the background. Once Shutdown was called no job is started and
// ErrRunnerClosed is returned.
func (r *Runner) Go(fn func(ctx context.Context)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(r.ctx)
	}()
	return nil
}

// Shutdown refuses new jobs and waits for the running ones. When ctx expires first the jobs'
// context is cancelled and ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}
