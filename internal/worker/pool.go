// Package worker runs the fixed pool of cache-owning workers.
//
// The cache package hands out one private store per owner and requires that
// an owner maps 1:1 to an isolated execution unit. HTTP handlers run on
// arbitrary goroutines, so the pool supplies the missing identity: N
// long-lived workers, each the sole user of one cache owner, with jobs
// routed to them by key hash. A given key therefore always lands on the
// same worker and sees the same store.
package worker

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/eugener/localcache/internal/cache"
)

// Job is executed on a worker with that worker's cache owner identity.
type Job func(owner cache.Owner)

type job struct {
	fn   Job
	done chan struct{}
}

// Pool dispatches jobs to a fixed set of workers by key hash.
type Pool struct {
	queues []chan job
}

// NewPool creates a pool of n workers. n is clamped to at least 1.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	queues := make([]chan job, n)
	for i := range queues {
		queues[i] = make(chan job, 64)
	}
	return &Pool{queues: queues}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.queues) }

// Run starts all workers and blocks until ctx is cancelled. Each worker
// drains its own queue sequentially, so jobs for one owner execute in
// program order.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, q := range p.queues {
		owner := cache.Owner("worker-" + strconv.Itoa(i))
		g.Go(func() error {
			slog.Info("cache worker started", "owner", string(owner))
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case j := <-q:
					j.fn(owner)
					close(j.done)
				}
			}
		})
	}
	return g.Wait()
}

// Dispatch runs fn on the worker that owns key and waits for it to finish.
// It returns early with the context error if ctx is done before the job
// completes; a job already queued may still run later.
func (p *Pool) Dispatch(ctx context.Context, key string, fn Job) error {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case p.queues[p.index(key)] <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// index hashes key to a worker slot with FNV-1a.
func (p *Pool) index(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.queues)))
}
