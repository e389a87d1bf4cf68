package forkjoin

import (
	"fmt"

	"github.com/gostdlib/forkjoin/goroutines"
	"github.com/johnsiilver/calloptions"
)

// Observer is called once for every element after it has been transformed, with the
// name of the worker that processed it. Calls from one worker are sequential, calls
// from different workers can happen at the same time.
type Observer func(worker string)

type reduceOptions struct {
	threshold   int
	observer    Observer
	poolOptions []goroutines.SubmitOption
}

// Option is an option for Reduce().
type Option interface {
	reduce()
}

// WithThreshold sets the size at or below which a piece of the input is processed
// sequentially instead of being split. n must be > 0. The default is
// max(Len / (4 * pool size), 1).
func WithThreshold(n int) interface {
	Option
	calloptions.CallOption
} {
	return struct {
		Option
		calloptions.CallOption
	}{
		CallOption: calloptions.New(
			func(a any) error {
				switch t := a.(type) {
				case *reduceOptions:
					if n < 1 {
						return fmt.Errorf("WithThreshold(%d): threshold must be > 0", n)
					}
					t.threshold = n
					return nil
				}
				return fmt.Errorf("WithThreshold can only be used with Reduce")
			},
		),
	}
}

// WithObserver sets an Observer that is called for every processed element.
// ContributionMap.Observe can be used here.
func WithObserver(o Observer) interface {
	Option
	calloptions.CallOption
} {
	return struct {
		Option
		calloptions.CallOption
	}{
		CallOption: calloptions.New(
			func(a any) error {
				switch t := a.(type) {
				case *reduceOptions:
					t.observer = o
					return nil
				}
				return fmt.Errorf("WithObserver can only be used with Reduce")
			},
		),
	}
}

// WithPoolOptions sets the goroutines.SubmitOption(s) used when the reduction is
// submitted to the Pool, such as stealing.Caller().
func WithPoolOptions(options ...goroutines.SubmitOption) interface {
	Option
	calloptions.CallOption
} {
	return struct {
		Option
		calloptions.CallOption
	}{
		CallOption: calloptions.New(
			func(a any) error {
				switch t := a.(type) {
				case *reduceOptions:
					t.poolOptions = options
					return nil
				}
				return fmt.Errorf("WithPoolOptions can only be used with Reduce")
			},
		),
	}
}
