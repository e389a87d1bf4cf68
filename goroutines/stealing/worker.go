package stealing

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/gostdlib/forkjoin/goroutines"
	"github.com/gostdlib/forkjoin/goroutines/internal/deque"
)

var _ goroutines.Worker = &worker{}

const (
	idleMinPark = time.Microsecond
	idleMaxPark = 10 * time.Millisecond
)

// worker is one goroutine of the Pool along with the deque it owns.
type worker struct {
	id    int
	name  string
	pool  *Pool
	deque *deque.Deque[submit]
	rnd   *rand.Rand

	executed atomic.Int64
	stolen   atomic.Int64
}

func newWorker(p *Pool, id int) *worker {
	return &worker{
		id:    id,
		name:  fmt.Sprintf("%s-worker-%d", p.name, id+1),
		pool:  p,
		deque: deque.New[submit](),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
	}
}

// Name implements goroutines.Worker.Name().
func (w *worker) Name() string {
	return w.name
}

// Owner implements goroutines.Worker.Owner().
func (w *worker) Owner() goroutines.Pool {
	return w.pool
}

// run is the worker loop. It runs Jobs until the Pool is stopped. When there is nothing
// to run it parks until signalled or until an exponentially growing timer fires, which
// covers a signal that was dropped because the wake channel was full.
func (w *worker) run(ctx context.Context) error {
	bo := newIdleBackOff()

	t := time.NewTimer(idleMaxPark)
	if !t.Stop() {
		<-t.C
	}

	for {
		if s, ok := w.find(); ok {
			w.execute(s)
			bo.Reset()
			continue
		}

		d := bo.NextBackOff()
		if d == backoff.Stop {
			d = idleMaxPark
		}
		t.Reset(d)

		fired := false
		select {
		case <-w.pool.done:
			t.Stop()
			return nil
		case <-w.pool.wake:
		case <-t.C:
			fired = true
		}
		if !fired && !t.Stop() {
			<-t.C
		}
	}
}

// find returns the next Job for the worker: first from the bottom of its own deque,
// then from the top of another worker's deque starting at a random victim.
func (w *worker) find() (submit, bool) {
	if s, ok := w.deque.PopBottom(); ok {
		return s, true
	}

	workers := w.pool.workers
	if len(workers) == 1 {
		return submit{}, false
	}
	start := w.rnd.Intn(len(workers))
	for i := 0; i < len(workers); i++ {
		victim := workers[(start+i)%len(workers)]
		if victim == w || victim.deque.Len() == 0 {
			continue
		}
		if s, ok := victim.deque.PopTop(); ok {
			w.stolen.Add(1)
			w.pool.stats.stolen.Add(1)
			return s, true
		}
	}
	return submit{}, false
}

// execute runs a Job with a Context that identifies this worker.
func (w *worker) execute(s submit) {
	p := w.pool
	p.running.Add(1)
	start := time.Now()
	defer func() {
		p.stats.record(time.Since(start))
		w.executed.Add(1)
		p.running.Add(-1)
		p.finish()
	}()

	s.job(goroutines.WithWorker(s.ctx, w))
}

func newIdleBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = idleMinPark
	bo.MaxInterval = idleMaxPark
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
