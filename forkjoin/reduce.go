package forkjoin

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gostdlib/internals/otel/span"
	"github.com/johnsiilver/calloptions"
	"go.opentelemetry.io/otel/codes"

	"github.com/gostdlib/forkjoin/goroutines"
	"github.com/gostdlib/forkjoin/goroutines/stealing"
)

// Transform converts an element of the input into the value that is reduced. It must
// not have side effects that change the result of the reduction.
type Transform[T, U any] func(ctx context.Context, v T) (U, error)

// Combiner merges two partial results. It must be associative.
type Combiner[U any] func(a, b U) U

// Reduce transforms every element of src and combines the results with combiner,
// starting from identity, using the workers of p. It blocks until the result is known
// or the reduction failed.
//
// An empty src returns identity. If a Transform returns an error or a Transform,
// Combiner or Observer panics, the reduction is abandoned and an error for which
// IsErrTaskExecution() is true is returned; elements already observed stay observed.
// If ctx is cancelled the reduction is abandoned and ctx.Err() is returned. In both
// cases Reduce only returns after every piece of this reduction has stopped running, so
// an Observer is never called after Reduce returns.
func Reduce[T, U any](ctx context.Context, p *Pool, src Source[T], transform Transform[T, U], combiner Combiner[U], identity U, options ...Option) (U, error) {
	spanner := span.Get(ctx)
	var zero U

	if err := validate(p, src, transform, combiner); err != nil {
		spanner.Error(err)
		return zero, err
	}

	opts := reduceOptions{}
	if err := calloptions.ApplyOptions(&opts, options); err != nil {
		e := invalidConfig("bad option")
		e.Cause = err
		spanner.Error(e)
		return zero, e
	}

	if p.State() >= ShuttingDown {
		err := shutDown(p, stealing.ErrShutdown)
		spanner.Error(err)
		return zero, err
	}

	n := src.Len()
	if n == 0 {
		return identity, nil
	}

	threshold := opts.threshold
	if threshold == 0 {
		threshold = max(n/(4*p.Len()), 1)
	}

	now := time.Now()
	r := &run[T, U]{
		ctx:       ctx,
		pool:      p,
		src:       src,
		transform: transform,
		combiner:  combiner,
		identity:  identity,
		observer:  opts.observer,
		threshold: threshold,
		quiesced:  make(chan struct{}),
	}
	r.outstanding.Store(1)

	root := task[U]{lo: 0, hi: n}
	// The root is always distributed like an outside submission, even when the caller
	// is itself running on a worker of p.
	poolOpts := append([]goroutines.SubmitOption{stealing.External()}, opts.poolOptions...)
	if err := p.Submit(ctx, func(ctx context.Context) { r.exec(ctx, root) }, poolOpts...); err != nil {
		if errors.Is(err, stealing.ErrShutdown) {
			err = shutDown(p, err)
		}
		spanner.Error(err)
		return zero, err
	}

	<-r.quiesced

	if spanner.Span != nil && spanner.Span.IsRecording() {
		spanner.Event(
			"forkjoin.Reduce() done",
			"submission", uuid.NewString(),
			"pool", p.GetName(),
			"elements", n,
			"threshold", threshold,
			"failed", r.err.Load() != nil,
			"elapsed_ns", time.Since(now),
		)
	}

	if errPtr := r.err.Load(); errPtr != nil {
		spanner.Status(codes.Error, (*errPtr).Error())
		spanner.Error(*errPtr)
		return zero, *errPtr
	}
	return r.result, nil
}

func validate[T, U any](p *Pool, src Source[T], transform Transform[T, U], combiner Combiner[U]) error {
	switch {
	case p == nil || p.Pool == nil:
		return invalidConfig("Pool cannot be nil")
	case src == nil:
		return invalidConfig("Source cannot be nil")
	case transform == nil:
		return invalidConfig("Transform cannot be nil")
	case combiner == nil:
		return invalidConfig("Combiner cannot be nil")
	}
	return nil
}

func shutDown(p *Pool, cause error) Error {
	return Error{Type: poolShutDownErr, Msg: fmt.Sprintf("pool(%s) does not accept new reductions", p.GetName()), Cause: cause}
}

type side uint8

const (
	leftSide side = iota
	rightSide
)

// join is where the results of the two halves of a split meet. The half that finishes
// second combines them and passes the result up to the parent join.
type join[U any] struct {
	parent  *join[U]
	side    side
	pending atomic.Int32

	left, right U
}

// task is a piece [lo, hi) of the input. parent is nil for the root.
type task[U any] struct {
	lo, hi int
	parent *join[U]
	side   side
}

// run is the state of one call to Reduce().
type run[T, U any] struct {
	ctx       context.Context
	pool      *Pool
	src       Source[T]
	transform Transform[T, U]
	combiner  Combiner[U]
	identity  U
	observer  Observer
	threshold int

	// outstanding counts tasks that were submitted and have not returned yet.
	outstanding atomic.Int64
	quiesced    chan struct{}

	err    atomic.Pointer[error]
	result U
}

// exec runs task t on the worker identified by ctx. While t is above the threshold it
// forks the right half to the worker's deque and keeps the left half.
func (r *run[T, U]) exec(ctx context.Context, t task[U]) {
	defer r.taskDone()
	defer func() {
		if p := recover(); p != nil {
			r.fail(Error{Type: taskExecErr, Msg: "reduction panicked", Cause: wrapPanic(p)})
		}
	}()

	for t.hi-t.lo > r.threshold {
		if r.stopped() {
			return
		}

		mid := t.lo + (t.hi-t.lo)/2
		j := &join[U]{parent: t.parent, side: t.side}
		j.pending.Store(2)

		right := task[U]{lo: mid, hi: t.hi, parent: j, side: rightSide}
		r.outstanding.Add(1)
		if err := r.pool.Submit(ctx, func(ctx context.Context) { r.exec(ctx, right) }); err != nil {
			r.outstanding.Add(-1)
			r.fail(fmt.Errorf("could not fork: %w", err))
			return
		}
		t = task[U]{lo: t.lo, hi: mid, parent: j, side: leftSide}
	}

	worker := goroutines.WorkerID(ctx)
	acc := r.identity
	for i := t.lo; i < t.hi; i++ {
		if r.stopped() {
			return
		}
		v, err := r.transform(ctx, r.src.At(i))
		if err != nil {
			r.fail(Error{Type: taskExecErr, Msg: fmt.Sprintf("transform failed on element %d", i), Cause: err})
			return
		}
		acc = r.combiner(acc, v)
		if r.observer != nil {
			r.observer(worker)
		}
	}
	r.complete(t.parent, t.side, acc)
}

// complete stores v as the result of one half of j. If the other half is already done,
// the halves are combined and the result moves up to the parent join, up to the root.
func (r *run[T, U]) complete(j *join[U], s side, v U) {
	for j != nil {
		if s == leftSide {
			j.left = v
		} else {
			j.right = v
		}
		if j.pending.Add(-1) != 0 {
			return
		}
		if r.stopped() {
			return
		}
		v = r.combiner(j.left, j.right)
		s, j = j.side, j.parent
	}
	r.result = v
}

// stopped reports if the reduction was abandoned because of a failure or because
// the Context passed to Reduce() was cancelled.
func (r *run[T, U]) stopped() bool {
	if r.err.Load() != nil {
		return true
	}
	select {
	case <-r.ctx.Done():
		r.fail(r.ctx.Err())
		return true
	default:
	}
	return false
}

// fail records err if it is the first failure of the reduction.
func (r *run[T, U]) fail(err error) {
	r.err.CompareAndSwap(nil, &err)
}

func (r *run[T, U]) taskDone() {
	if r.outstanding.Add(-1) == 0 {
		close(r.quiesced)
	}
}
