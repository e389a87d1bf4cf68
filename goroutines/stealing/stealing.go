/*
Package stealing provides a fixed size Pool of goroutines that schedules Jobs with work stealing.

Every worker owns a deque. Jobs submitted from outside the Pool are spread round robin
across the worker deques. A Job that is running on a worker and submits another Job
(with the Context it was handed) pushes it onto the bottom of its own worker's deque,
and that worker pops from the bottom, so recently forked work stays hot. A worker
with nothing to do steals from the top of another worker's deque, which is where the
oldest and usually largest pieces of work sit.

The Pool has a lifecycle of Created -> Active -> ShuttingDown -> Terminated. Shutdown()
stops outside submissions but lets in-flight Jobs, and any Jobs they fork, finish.

See the examples in the parent package "goroutines" for an overview of using pools.
*/
package stealing

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/gostdlib/forkjoin/goroutines"
	"github.com/gostdlib/forkjoin/goroutines/internal/pool"
	"github.com/gostdlib/forkjoin/goroutines/internal/register"
	"github.com/gostdlib/forkjoin/prim/wait"
	"github.com/gostdlib/internals/otel/span"
)

var _ goroutines.Pool = &Pool{}

const pkg = "github.com/gostdlib/forkjoin/goroutines/stealing"

// DefaultName is the base name given to a Pool created with the empty name.
const DefaultName = "stealing"

var (
	// ErrShutdown is returned by Submit() once Shutdown() or Close() has been called.
	ErrShutdown = errors.New("pool is shut down")
	// ErrNilJob is returned by Submit() when the Job is nil.
	ErrNilJob = errors.New("cannot submit a runner that is nil")
)

// State is the lifecycle state of a Pool.
type State uint32

const (
	// Created is the state of a Pool that has not received a Job yet.
	Created State = iota
	// Active is the state of a Pool that has received at least one Job.
	Active
	// ShuttingDown means Shutdown() was called and Jobs are still in flight.
	ShuttingDown
	// Terminated means all Jobs finished after Shutdown() and the workers have exited.
	Terminated
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Active:
		return "Active"
	case ShuttingDown:
		return "ShuttingDown"
	case Terminated:
		return "Terminated"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// Pool is a pool of goroutines that steal work from each other.
type Pool struct {
	pool.Pool // Implements the pool.Preventer interface

	name    string
	workers []*worker
	group   wait.Group

	// mu orders outside submissions against Shutdown(). Forks from workers don't take it.
	mu    sync.RWMutex
	state atomic.Uint32

	// pending is the number of Jobs queued or running.
	pending atomic.Int64
	running atomic.Int64
	wg      sync.WaitGroup
	next    atomic.Uint64

	wake       chan struct{}
	done       chan struct{}
	doneOnce   sync.Once
	terminated chan struct{}

	stats *stats
}

// New creates a new Pool. "name" is the base name of the pool and is used in OTEL events
// and to name workers "<name>-worker-<n>". Names cannot contain spaces, hyphens, or numbers.
// If the name is already used by another live Pool, a "-<n>" suffix is added to make it
// unique, so worker names are unique in the process. If name is the empty string,
// DefaultName is used.
// "size" is the number of goroutines that can execute concurrently.
func New(name string, size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("cannot have a Pool with size < 1")
	}
	if err := register.ValidateBaseName(name); err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultName
	}

	p := &Pool{
		name:       name,
		workers:    make([]*worker, size),
		wake:       make(chan struct{}, size),
		done:       make(chan struct{}),
		terminated: make(chan struct{}),
		stats:      newStats(),
		group:      wait.Group{Name: name + " workers"},
	}

	for {
		if err := register.Register(p); err != nil {
			p.name = register.NewName(p.name)
			continue
		}
		break
	}

	for i := range p.workers {
		p.workers[i] = newWorker(p, i)
	}
	ctx := context.Background()
	for _, w := range p.workers {
		p.group.Go(ctx, w.run)
	}
	go p.reap()

	return p, nil
}

// Shutdown stops the Pool from accepting Jobs from outside the Pool. Jobs that are
// queued or running finish, including Jobs they submit. Once no Jobs remain the
// workers exit and the Pool is Terminated. Shutdown does not block and can be
// called more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if State(p.state.Load()) >= ShuttingDown {
		p.mu.Unlock()
		return
	}
	p.state.Store(uint32(ShuttingDown))
	p.mu.Unlock()

	if p.pending.Load() == 0 {
		p.stop()
	}
}

// AwaitTermination blocks until the Pool is Terminated or ctx is done.
func (p *Pool) AwaitTermination(ctx context.Context) error {
	select {
	case <-p.terminated:
	case <-ctx.Done():
		return ctx.Err()
	}

	spanner := span.Get(ctx)
	if spanner.Span != nil && spanner.Span.IsRecording() {
		b, err := json.Marshal(p.Stats())
		if err != nil {
			b = []byte(fmt.Sprintf("Error marshaling stats: %s", err))
		}
		spanner.Event(
			"Pool terminated",
			"pkg", pkg,
			"name", p.name,
			"stats", string(b),
		)
	}
	return nil
}

// Close calls Shutdown() and waits for the Pool to be Terminated.
func (p *Pool) Close() {
	p.Shutdown()
	<-p.terminated
}

// Wait will wait for all Jobs in the pool to finish. If you need to only
// wait on a subset of jobs, use a WaitGroup in your job.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Len returns the number of workers in the pool.
func (p *Pool) Len() int {
	return len(p.workers)
}

// Running returns the number of running jobs in the pool.
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// GetName gets the name of the goroutines pool.
func (p *Pool) GetName() string {
	return p.name
}

// State returns the current lifecycle State of the Pool.
func (p *Pool) State() State {
	return State(p.state.Load())
}

// Workers returns the names of the workers in the Pool.
func (p *Pool) Workers() []string {
	out := make([]string, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.name
	}
	return out
}

// Caller sets the name of the calling function so that metrics can differentiate
// who is using the goroutines in the pool. With the introduction of generics, there is no
// way to get the name of function call reliably, as generic functions are written dynamically and
// runtime.FuncForPC does not work for generics. If this is not set, we will use runtime.FuncForPC().
func Caller(name string) goroutines.SubmitOption {
	return func(opt *pool.SubmitOptions) error {
		if opt.Type != pool.PTStealing {
			return fmt.Errorf("cannot use stealing.Caller() with a non stealing.Pool")
		}
		opt.Caller = name
		return nil
	}
}

// External makes a Job submitted from inside a worker of this Pool be treated like
// a Job from outside the Pool: it is spread round robin and is rejected after Shutdown().
func External() goroutines.SubmitOption {
	return func(opt *pool.SubmitOptions) error {
		if opt.Type != pool.PTStealing {
			return fmt.Errorf("cannot use stealing.External() with a non stealing.Pool")
		}
		opt.External = true
		return nil
	}
}

type submit struct {
	ctx context.Context
	job goroutines.Job
}

// Submit submits the runner to be executed. If ctx was handed to a Job by one of this
// Pool's workers, the runner is pushed onto that worker's deque and is accepted even
// while the Pool is ShuttingDown. Otherwise ErrShutdown is returned after Shutdown().
// Submit never blocks.
func (p *Pool) Submit(ctx context.Context, runner goroutines.Job, options ...goroutines.SubmitOption) error {
	if runner == nil {
		return ErrNilJob
	}

	opts := pool.SubmitOptions{Type: pool.PTStealing}
	for _, o := range options {
		if err := o(&opts); err != nil {
			return err
		}
	}

	s := submit{ctx: ctx, job: runner}
	if !opts.External {
		if w := p.workerFrom(ctx); w != nil {
			p.add()
			w.deque.PushBottom(s)
			p.stats.forked.Add(1)
			p.signal()
			return nil
		}
	}

	spanner := span.Get(ctx)
	now := time.Now()

	p.mu.RLock()
	st := State(p.state.Load())
	if st >= ShuttingDown {
		p.mu.RUnlock()
		spanner.Error(ErrShutdown)
		return ErrShutdown
	}
	if st == Created {
		p.state.CompareAndSwap(uint32(Created), uint32(Active))
	}
	p.add()
	p.mu.RUnlock()

	w := p.workers[p.next.Add(1)%uint64(len(p.workers))]
	w.deque.PushBottom(s)
	p.stats.submitted.Add(1)
	p.signal()

	p.submitEvent(spanner, p.callerName(opts), now)
	return nil
}

// workerFrom returns the worker of this Pool that handed out ctx, if any.
func (p *Pool) workerFrom(ctx context.Context) *worker {
	gw, ok := goroutines.WorkerFrom(ctx)
	if !ok {
		return nil
	}
	w, ok := gw.(*worker)
	if !ok || w.pool != p {
		return nil
	}
	return w
}

// add records a new Job as pending.
func (p *Pool) add() {
	p.pending.Add(1)
	p.wg.Add(1)
}

// finish records a Job as finished and stops the workers if it was the last Job
// after Shutdown().
func (p *Pool) finish() {
	p.wg.Done()
	if p.pending.Add(-1) == 0 && State(p.state.Load()) == ShuttingDown {
		p.stop()
	}
}

// signal wakes up a parked worker if there is one.
func (p *Pool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) stop() {
	p.doneOnce.Do(func() { close(p.done) })
}

// reap waits for the workers to exit after stop() and moves the Pool to Terminated.
func (p *Pool) reap() {
	<-p.done
	p.group.Wait(context.Background())
	p.state.Store(uint32(Terminated))
	register.Unregister(p)
	close(p.terminated)
}

func (p *Pool) submitEvent(spanner span.Span, fcn string, t time.Time) {
	spanner.Event(
		"Pool.Submit() called",
		"pkg", pkg,
		"caller", fcn,
		"name", p.name,
		"submit_latency_ns", time.Since(t),
	)
}

func (p *Pool) callerName(opts pool.SubmitOptions) string {
	if opts.Caller != "" {
		return opts.Caller
	}

	pc, _, _, ok := runtime.Caller(2)
	details := runtime.FuncForPC(pc)
	if ok && details != nil {
		return details.Name()
	}
	return ""
}
