// Package query provides Filtered, a lazily started and memoized request
// parameterized by a field projection.
//
// A Filtered collects Include/Exclude calls until it is first consumed
// through Start, Await or Done. The first consumption freezes the projection
// and runs the executor exactly once; every later consumer observes the same
// outcome, success or failure.
//
//	bugs, err := client.GetBugs(1, 2).Include("id", "summary").Await(ctx)
package query

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/reoring/gobugzilla/schema"
)

// Exec performs the request for the frozen projection.
type Exec[T any] func(ctx context.Context, p schema.Projection) ([]T, error)

// Filtered is a single-use deferred query. The zero value is not usable; build
// one with New.
type Filtered[T any] struct {
	exec Exec[T]

	mu      sync.Mutex
	proj    schema.Projection
	started bool

	done chan struct{}
	res  []T
	err  error
}

// New wraps exec. Nothing runs until the query is consumed.
func New[T any](exec Exec[T]) *Filtered[T] {
	return &Filtered[T]{exec: exec, done: make(chan struct{})}
}

// Include replaces the include list. Calling it without fields selects every
// field again. It has no effect once execution started.
func (f *Filtered[T]) Include(fields ...string) *Filtered[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		f.proj.Includes = cloneOrNil(fields)
	}
	return f
}

// Exclude replaces the exclude list. Calling it without fields clears it. It
// has no effect once execution started.
func (f *Filtered[T]) Exclude(fields ...string) *Filtered[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		f.proj.Excludes = cloneOrNil(fields)
	}
	return f
}

// Projection returns the projection the executor received, or the pending one
// when the query has not started yet.
func (f *Filtered[T]) Projection() schema.Projection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return schema.Projection{Includes: slices.Clone(f.proj.Includes), Excludes: slices.Clone(f.proj.Excludes)}
}

// Started reports whether the query has been consumed.
func (f *Filtered[T]) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Start begins execution if it has not begun yet. The executor runs detached
// from ctx cancellation; ctx only contributes its values.
func (f *Filtered[T]) Start(ctx context.Context) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	p := f.proj
	f.mu.Unlock()

	go f.run(context.WithoutCancel(ctx), p)
}

func (f *Filtered[T]) run(ctx context.Context, p schema.Projection) {
	defer close(f.done)
	defer func() {
		if r := recover(); r != nil {
			f.res, f.err = nil, fmt.Errorf("query: executor panicked: %v", r)
		}
	}()
	f.res, f.err = f.exec(ctx, p)
}

// Await starts the query if needed and waits for its outcome. Cancelling ctx
// abandons this wait only; the execution and other waiters are unaffected.
func (f *Filtered[T]) Await(ctx context.Context) ([]T, error) {
	f.Start(ctx)
	// a completed outcome wins over a cancelled ctx
	select {
	case <-f.done:
		return f.res, f.err
	default:
	}
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done starts the query if needed and returns a channel closed once it
// completed, whatever the outcome.
func (f *Filtered[T]) Done() <-chan struct{} {
	f.Start(context.Background())
	return f.done
}

// Err reports the outcome of a completed query. It returns nil while the
// query is still running.
func (f *Filtered[T]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

func cloneOrNil(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	return slices.Clone(fields)
}
