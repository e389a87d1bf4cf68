// Package deque provides the double ended queue each worker of a work stealing pool owns.
// The owning worker pushes and pops at the bottom, other workers steal from the top.
package deque

import (
	"sync"
	"sync/atomic"
)

const minCap = 16

// Deque is a generic double ended queue that uses a growable ring buffer.
// All methods are safe for concurrent use.
type Deque[A any] struct {
	mu   sync.Mutex
	buf  []A
	head int // index of the top entry
	n    int

	// size mirrors n so that thieves can skip empty victims without taking the lock.
	size atomic.Int64
}

// New creates a new Deque.
func New[A any]() *Deque[A] {
	return &Deque[A]{buf: make([]A, minCap)}
}

// Len returns the number of entries. The value may be stale by the time it is used.
func (d *Deque[A]) Len() int {
	return int(d.size.Load())
}

// PushBottom adds an entry at the bottom.
func (d *Deque[A]) PushBottom(a A) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.n == len(d.buf) {
		d.grow()
	}
	d.buf[(d.head+d.n)%len(d.buf)] = a
	d.n++
	d.size.Store(int64(d.n))
}

// PopBottom removes the most recently pushed entry. ok is false if the Deque is empty.
func (d *Deque[A]) PopBottom() (val A, ok bool) {
	if d.size.Load() == 0 {
		return val, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.n == 0 {
		return val, false
	}
	i := (d.head + d.n - 1) % len(d.buf)
	val = d.buf[i]
	var zero A
	d.buf[i] = zero
	d.n--
	d.size.Store(int64(d.n))
	return val, true
}

// PopTop removes the oldest entry. This is what a thief calls. ok is false if the Deque is empty.
func (d *Deque[A]) PopTop() (val A, ok bool) {
	if d.size.Load() == 0 {
		return val, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.n == 0 {
		return val, false
	}
	val = d.buf[d.head]
	var zero A
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.n--
	d.size.Store(int64(d.n))
	return val, true
}

// grow doubles the buffer, unrolling the ring so head is at 0. Must hold mu.
func (d *Deque[A]) grow() {
	n := make([]A, len(d.buf)*2)
	for i := 0; i < d.n; i++ {
		n[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = n
	d.head = 0
}
