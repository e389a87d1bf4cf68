package pool

// PoolType is for internal use. Please ignore.
type PoolType uint8

const (
	PTUnknown  PoolType = 0
	PTStealing PoolType = 1
)

// SubmitOptions is used internally. Please ignore.
type SubmitOptions struct {
	// Caller is a name of the supposed calling function so that metrics can differentiate
	// who is using the goroutines in the pool.
	Caller string
	// Type is the type of pool this option is mean for.
	Type PoolType
	// External forces a Job submitted from inside one of the pool's workers to be
	// distributed like a Job from outside the pool instead of going to that worker's deque.
	External bool
}

// Preventer is an interface that prevents implementations of our pools from outside packages.
type Preventer interface {
	pool()
}

// Pool implements Preventer.
type Pool struct{}

//lint:ignore U1000 This is for internal use only.
func (p *Pool) pool() {}
