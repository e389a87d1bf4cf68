package stealing

import (
	"math"
	"sync/atomic"
	"time"
)

// Stats are the stats for the Pool.
type Stats struct {
	// Submitted is the number of Jobs submitted from outside the Pool.
	Submitted int64
	// Forked is the number of Jobs submitted by Jobs running on a worker.
	Forked int64
	// Stolen is the number of Jobs a worker took from another worker's deque.
	Stolen int64
	// Completed is the number of Jobs that have finished.
	Completed int64
	// Min is the minimum running time for a Job.
	Min time.Duration
	// Avg is the avg running time for a Job.
	Avg time.Duration
	// Max is the maximim running time for a Job.
	Max time.Duration
	// Executed is the number of Jobs run by each worker, keyed by worker name.
	Executed map[string]int64
}

// Stats returns a snapshot of the Pool's stats.
func (p *Pool) Stats() Stats {
	s := p.stats.toStats()
	s.Executed = make(map[string]int64, len(p.workers))
	for _, w := range p.workers {
		s.Executed[w.name] = w.executed.Load()
	}
	return s
}

// stats is used to atomically calculate our Pool stats.
type stats struct {
	submitted atomic.Int64
	forked    atomic.Int64
	stolen    atomic.Int64
	completed atomic.Int64
	min       atomic.Int64
	max       atomic.Int64
	avgTotal  atomic.Int64
}

func newStats() *stats {
	s := &stats{}
	s.min.Store(math.MaxInt64)
	return s
}

// record records that a Job finished after running for d.
func (s *stats) record(d time.Duration) {
	setMin(&s.min, int64(d))
	setMax(&s.max, int64(d))
	s.avgTotal.Add(int64(d))
	s.completed.Add(1)
}

func (s *stats) toStats() Stats {
	stats := Stats{
		Submitted: s.submitted.Load(),
		Forked:    s.forked.Load(),
		Stolen:    s.stolen.Load(),
		Completed: s.completed.Load(),
		Max:       time.Duration(s.max.Load()),
	}
	if stats.Completed != 0 {
		stats.Min = time.Duration(s.min.Load())
		stats.Avg = time.Duration(s.avgTotal.Load() / stats.Completed)
	}
	return stats
}

// setMin will set current to v if v is smaller that current.
func setMin(current *atomic.Int64, v int64) {
	for {
		c := current.Load()
		if v >= c {
			return
		}
		if current.CompareAndSwap(c, v) {
			return
		}
	}
}

// setMax will set current to v if v is bigger than current.
func setMax(current *atomic.Int64, v int64) {
	for {
		c := current.Load()
		if v <= c {
			return
		}
		if current.CompareAndSwap(c, v) {
			return
		}
	}
}
