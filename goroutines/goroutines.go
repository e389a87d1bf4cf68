/*
Package goroutines provides the interfaces and defintions that goroutine pools must
implement/use. Implementations are in sub-directories and can be used directly
without using this package.

The implementation in this module is the "stealing" package, a fixed size pool
where every worker owns a deque of Jobs and idle workers steal from busy ones.

Example of using a pool:

	ctx := context.Background()
	p, err := stealing.New("", runtime.NumCPU())
	if err != nil {
		panic(err)
	}
	defer p.Close()

	for i := 0; i < 100; i++ {
		i := i

		p.Submit(
			ctx,
			func(ctx context.Context) {
				fmt.Printf("Hello number %d from %s\n", i, goroutines.WorkerID(ctx))
			},
		)
	}

	p.Wait()

A Job that is running inside a pool receives a Context that identifies the worker
running it. Use WorkerID() to get the name of that worker. Pools may use this to
route Jobs submitted from inside a running Job to the worker that submitted them.
*/
package goroutines

import (
	"context"

	"github.com/gostdlib/forkjoin/goroutines/internal/pool"
)

// Job is a job for a Pool.
type Job func(ctx context.Context)

// SubmitOption is an option for Pool.Submit().
type SubmitOption func(opt *pool.SubmitOptions) error

// Pool is the minimum interface that any goroutine pool must implement.
type Pool interface {
	// Submit submits a Job to be run.
	Submit(ctx context.Context, runner Job, options ...SubmitOption) error
	// Close closes the goroutine pool. This will wait for submitted Jobs to finish.
	Close()
	// Wait will wait for all goroutines to finish. This should only be called if
	// you have stopped calling Submit().
	Wait()
	// Len indicates how big the pool is.
	Len() int
	// Running returns how many goroutines are currently in flight.
	Running() int
	// GetName returns the name of the pool.
	GetName() string
}

// Worker identifies the worker goroutine a Job is running on.
type Worker interface {
	// Name is the name of the worker, unique among live workers in the process.
	Name() string
	// Owner is the pool the worker belongs to.
	Owner() Pool
}

type workerKey struct{}

// WithWorker returns a child Context of ctx that records the Job is running on w.
// This is for use by Pool implementations.
func WithWorker(ctx context.Context, w Worker) context.Context {
	return context.WithValue(ctx, workerKey{}, w)
}

// WorkerFrom returns the Worker stored in ctx by WithWorker.
func WorkerFrom(ctx context.Context) (Worker, bool) {
	w, ok := ctx.Value(workerKey{}).(Worker)
	return w, ok
}

// WorkerID returns the name of the worker that is running the Job that received ctx.
// If ctx was not provided by a Pool, this returns the empty string.
func WorkerID(ctx context.Context) string {
	w, ok := WorkerFrom(ctx)
	if !ok {
		return ""
	}
	return w.Name()
}
