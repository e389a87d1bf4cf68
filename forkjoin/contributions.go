package forkjoin

import (
	"sync"
	"sync/atomic"
)

// ContributionMap counts how many elements each worker processed. It is safe for
// concurrent use and its zero value is ready to use. Entries are created on the first
// contribution of a worker and are only removed by Clear().
type ContributionMap struct {
	m sync.Map // string -> *atomic.Int64
}

// Observe adds one to the count of worker. It has the signature of an Observer so it
// can be passed to WithObserver().
func (c *ContributionMap) Observe(worker string) {
	c.Add(worker, 1)
}

// Add adds n to the count of worker.
func (c *ContributionMap) Add(worker string, n int64) {
	v, ok := c.m.Load(worker)
	if !ok {
		v, _ = c.m.LoadOrStore(worker, new(atomic.Int64))
	}
	v.(*atomic.Int64).Add(n)
}

// Get returns the count of worker.
func (c *ContributionMap) Get(worker string) int64 {
	v, ok := c.m.Load(worker)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Range calls f for every worker and its count until f returns false.
func (c *ContributionMap) Range(f func(worker string, n int64) bool) {
	c.m.Range(func(k, v any) bool {
		return f(k.(string), v.(*atomic.Int64).Load())
	})
}

// Snapshot returns a copy of the counts.
func (c *ContributionMap) Snapshot() map[string]int64 {
	out := map[string]int64{}
	c.Range(func(worker string, n int64) bool {
		out[worker] = n
		return true
	})
	return out
}

// Total returns the sum of all counts.
func (c *ContributionMap) Total() int64 {
	var total int64
	c.Range(func(_ string, n int64) bool {
		total += n
		return true
	})
	return total
}

// Len returns the number of workers with an entry.
func (c *ContributionMap) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear removes all entries. It should only be called between Reduce() calls.
func (c *ContributionMap) Clear() {
	c.m.Range(func(k, _ any) bool {
		c.m.Delete(k)
		return true
	})
}
