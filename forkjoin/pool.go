package forkjoin

import (
	"github.com/gostdlib/forkjoin/goroutines/stealing"
)

// State is the lifecycle state of a Pool.
type State = stealing.State

const (
	Created      = stealing.Created
	Active       = stealing.Active
	ShuttingDown = stealing.ShuttingDown
	Terminated   = stealing.Terminated
)

// DefaultName is the base name of a Pool created with the empty name.
const DefaultName = "forkjoin"

// Pool is a fixed size pool of workers that Reduce() runs on. It is a stealing.Pool,
// so Shutdown(), Close(), AwaitTermination(), State(), Stats() and Workers() are available.
type Pool struct {
	*stealing.Pool
}

// New creates a Pool with "size" workers. See stealing.New() for how "name" is used.
// Workers are named "<name>-worker-<n>". The Pool must be shut down with Shutdown()
// or Close() to release its goroutines.
func New(name string, size int) (*Pool, error) {
	if size < 1 {
		return nil, invalidConfig("pool size must be > 0, got %d", size)
	}
	if name == "" {
		name = DefaultName
	}
	p, err := stealing.New(name, size)
	if err != nil {
		e := invalidConfig("could not create pool(%s)", name)
		e.Cause = err
		return nil, e
	}
	return &Pool{Pool: p}, nil
}
