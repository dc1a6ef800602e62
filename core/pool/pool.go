// Package pool bounds the number of concurrent blocking calls of a process.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultSize is used when a pool is created with a non-positive size
const DefaultSize = 8

// Pool limits concurrent embedding, model, index and network calls.
// Fan-out phases use Group, the leaf calls inside use Do, so nested phases
// never wait on slots held by their parents.
type Pool struct {
	size int64
	sem  *semaphore.Weighted
}

// New creates a pool with size slots
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{
		size: int64(size),
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return int(p.size)
}

// Do runs fn while holding one slot
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// Group returns an errgroup limited to the pool size for one fan-out phase
func (p *Pool) Group(ctx context.Context) (*errgroup.Group, context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(int(p.size))
	return group, groupCtx
}

// Run executes fn on the pool and returns its result
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}
