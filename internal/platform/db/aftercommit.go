package db

import (
	"context"
	"sync"
)

type afterCommitKey struct{}

// AfterCommit queues side effects (events, cache invalidation) until the
// transaction they describe is durable.
type AfterCommit struct {
	mu   sync.Mutex
	fns  []func(ctx context.Context)
	done bool
}

// WithAfterCommit returns a context on which Defer queues instead of running.
// The caller runs the queue with Run once its transaction has committed and
// simply drops it otherwise.
func WithAfterCommit(ctx context.Context) (context.Context, *AfterCommit) {
	a := &AfterCommit{}
	return context.WithValue(ctx, afterCommitKey{}, a), a
}

func afterCommitFrom(ctx context.Context) *AfterCommit {
	a, _ := ctx.Value(afterCommitKey{}).(*AfterCommit)
	return a
}

// Defer runs fn immediately unless ctx carries a pending AfterCommit queue.
func Defer(ctx context.Context, fn func(ctx context.Context)) {
	if a := afterCommitFrom(ctx); a != nil {
		a.mu.Lock()
		if !a.done {
			a.fns = append(a.fns, fn)
			a.mu.Unlock()
			return
		}
		a.mu.Unlock()
	}
	fn(ctx)
}

// Run executes the queued functions in order. Later Defer calls on the same
// queue run immediately.
func (a *AfterCommit) Run(ctx context.Context) {
	a.mu.Lock()
	fns := a.fns
	a.fns, a.done = nil, true
	a.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}

// Len reports how many functions are waiting.
func (a *AfterCommit) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.fns)
}
