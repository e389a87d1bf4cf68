/*
Package forkjoin provides a parallel reduction over a fixed size work stealing pool that
records which worker processed which element.

A Pool is created once, used for any number of Reduce() calls, possibly from many
goroutines at the same time, and shut down once:

	p, err := forkjoin.New("", 4)
	if err != nil {
		// Handle error
	}
	defer p.Close()

	contrib := &forkjoin.ContributionMap{}

	sum, err := forkjoin.Reduce(
		ctx,
		p,
		forkjoin.Range(0, 1_000_000),
		func(ctx context.Context, i int) (int, error) { return i, nil },
		func(a, b int) int { return a + b },
		0,
		forkjoin.WithObserver(contrib.Observe),
	)
	if err != nil {
		// Handle error
	}
	fmt.Println(sum) // 499999500000

	contrib.Range(func(worker string, n int64) bool {
		fmt.Printf("%s -> %d\n", worker, n)
		return true
	})

Reduce splits the input in halves until a piece is no bigger than a threshold. The right
half of every split is pushed onto the deque of the worker doing the split, where idle
workers can steal it, and the worker continues with the left half. Leaves fold their
elements sequentially and the two halves of a split are combined by whichever half
finishes last, so no worker ever blocks waiting for another.

The Combiner must be associative and the identity must be neutral for it. Halves are
always combined as combiner(left, right), so a Combiner that is associative but not
commutative gives the sequential answer for ordered Sources such as Slice and Range.
The order in which elements are visited is not defined.

How the elements are spread across workers depends on timing. Only the total of a
ContributionMap is deterministic: it equals the number of elements in the Source.

Reduce must not be called from inside a Job running on the same Pool.
*/
package forkjoin
