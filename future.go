package authsession

import (
	"context"
	"sync"
	"time"
)

// Future holds the outcome of one asynchronous provider call.
// It settles exactly once.
type Future[T any] struct {
	result T
	err    error
	once   sync.Once
	done   chan struct{}
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// goFuture runs fn on its own goroutine and settles the future with its result
func goFuture[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		res, err := fn(ctx)
		f.settle(res, err)
	}()
	return f
}

// settle records the outcome. Calls after the first are ignored.
func (f *Future[T]) settle(result T, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the future has settled
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the call settles and returns its result and error
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext is like Await but gives up when ctx is done. Giving up does
// not cancel the underlying call; it still runs to completion.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits at most timeout for the call to settle.
// Returns ErrTimeout if it has not.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	}
}

// IsComplete reports whether the future has settled, without blocking
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
