package forkjoin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func identityInt(ctx context.Context, i int) (int64, error) {
	return int64(i), nil
}

func sum(a, b int64) int64 {
	return a + b
}

func strLen(ctx context.Context, s string) (int, error) {
	return len(s), nil
}

func sumInt(a, b int) int {
	return a + b
}

func newPool(t *testing.T, size int) *Pool {
	t.Helper()
	p, err := New("", size)
	if err != nil {
		t.Fatalf("New(%d): %s", size, err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestReduceMatchesSequential(t *testing.T) {
	t.Parallel()

	words := []string{}
	for i := 0; i < 5000; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	wantLen := 0
	for _, w := range words {
		wantLen += len(w)
	}
	wantConcat := strings.Join(words[:300], "")

	for _, size := range []int{1, 4, 8, 16} {
		p := newPool(t, size)

		contrib := &ContributionMap{}
		got, err := Reduce(context.Background(), p, Range(0, 10000), identityInt, sum, 0, WithObserver(contrib.Observe))
		if err != nil {
			t.Fatalf("TestReduceMatchesSequential(size %d, range): got err == %s", size, err)
		}
		if got != 49995000 {
			t.Errorf("TestReduceMatchesSequential(size %d, range): got %d, want 49995000", size, got)
		}
		if contrib.Total() != 10000 {
			t.Errorf("TestReduceMatchesSequential(size %d, range): contributions total %d, want 10000", size, contrib.Total())
		}

		gotLen, err := Reduce(context.Background(), p, Slice(words), strLen, sumInt, 0)
		if err != nil {
			t.Fatalf("TestReduceMatchesSequential(size %d, words): got err == %s", size, err)
		}
		if gotLen != wantLen {
			t.Errorf("TestReduceMatchesSequential(size %d, words): got %d, want %d", size, gotLen, wantLen)
		}

		// Concatenation is associative but not commutative.
		gotConcat, err := Reduce(
			context.Background(),
			p,
			Slice(words[:300]),
			func(ctx context.Context, s string) (string, error) { return s, nil },
			func(a, b string) string { return a + b },
			"",
			WithThreshold(3),
		)
		if err != nil {
			t.Fatalf("TestReduceMatchesSequential(size %d, concat): got err == %s", size, err)
		}
		if gotConcat != wantConcat {
			t.Errorf("TestReduceMatchesSequential(size %d, concat): result is not in input order", size)
		}
	}
}

func TestReduceMillion(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)
	contrib := &ContributionMap{}

	got, err := Reduce(context.Background(), p, Range(0, 1_000_000), identityInt, sum, 0, WithObserver(contrib.Observe))
	if err != nil {
		t.Fatalf("TestReduceMillion: got err == %s", err)
	}
	if got != 499999500000 {
		t.Errorf("TestReduceMillion: got %d, want 499999500000", got)
	}
	if contrib.Total() != 1_000_000 {
		t.Errorf("TestReduceMillion: contributions total %d, want 1000000", contrib.Total())
	}

	valid := map[string]bool{}
	for _, w := range p.Workers() {
		valid[w] = true
	}
	for w := range contrib.Snapshot() {
		if !valid[w] {
			t.Errorf("TestReduceMillion: contribution from %q, which is not a worker of the pool", w)
		}
	}
}

func TestReduceListVsSet(t *testing.T) {
	t.Parallel()

	p := newPool(t, 8)
	contrib := &ContributionMap{}

	list := []string{"a", "bb", "ccc"}
	set := map[string]struct{}{"a": {}, "bb": {}, "ccc": {}}

	tests := []struct {
		desc string
		src  Source[string]
	}{
		{desc: "list", src: Slice(list)},
		{desc: "set", src: Set(set)},
	}

	for _, test := range tests {
		contrib.Clear()
		got, err := Reduce(context.Background(), p, test.src, strLen, sumInt, 0, WithObserver(contrib.Observe))
		if err != nil {
			t.Errorf("TestReduceListVsSet(%s): got err == %s", test.desc, err)
			continue
		}
		if got != 6 {
			t.Errorf("TestReduceListVsSet(%s): got %d, want 6", test.desc, got)
		}
		if contrib.Total() != 3 {
			t.Errorf("TestReduceListVsSet(%s): contributions total %d, want 3", test.desc, contrib.Total())
		}
	}
}

func TestReduceEmpty(t *testing.T) {
	t.Parallel()

	p := newPool(t, 2)
	contrib := &ContributionMap{}

	got, err := Reduce(context.Background(), p, Slice([]int{}), identityInt, sum, 42, WithObserver(contrib.Observe))
	if err != nil {
		t.Fatalf("TestReduceEmpty: got err == %s", err)
	}
	if got != 42 {
		t.Errorf("TestReduceEmpty: got %d, want the identity 42", got)
	}
	if contrib.Len() != 0 {
		t.Errorf("TestReduceEmpty: got %d contribution entries, want 0", contrib.Len())
	}
	if p.Stats().Submitted != 0 {
		t.Errorf("TestReduceEmpty: an empty reduction was submitted to the pool")
	}
}

func TestReduceAfterShutdown(t *testing.T) {
	t.Parallel()

	p, err := New("", 2)
	if err != nil {
		t.Fatal(err)
	}
	p.Shutdown()
	p.Shutdown()

	tests := []struct {
		desc string
		src  Source[int]
	}{
		{desc: "empty", src: Range(0, 0)},
		{desc: "non-empty", src: Range(0, 100)},
	}

	for _, test := range tests {
		got, err := Reduce(context.Background(), p, test.src, identityInt, sum, 0)
		if !IsErrPoolShutDown(err) {
			t.Errorf("TestReduceAfterShutdown(%s): got err == %v, want pool shut down", test.desc, err)
		}
		if got != 0 {
			t.Errorf("TestReduceAfterShutdown(%s): got result %d, want none", test.desc, got)
		}
	}

	p.Close()
	p.Close()
	if p.State() != Terminated {
		t.Errorf("TestReduceAfterShutdown: got State() == %s, want Terminated", p.State())
	}
	if _, err := Reduce(context.Background(), p, Range(0, 100), identityInt, sum, 0); !IsErrPoolShutDown(err) {
		t.Errorf("TestReduceAfterShutdown(terminated): got err == %v, want pool shut down", err)
	}
}

func TestReduceShutdownInFlight(t *testing.T) {
	t.Parallel()

	p, err := New("", 4)
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	once := sync.Once{}

	type result struct {
		v   int64
		err error
	}
	out := make(chan result, 1)
	go func() {
		v, err := Reduce(
			context.Background(),
			p,
			Range(0, 100000),
			func(ctx context.Context, i int) (int64, error) {
				once.Do(func() { close(started) })
				<-release
				return int64(i), nil
			},
			sum,
			0,
		)
		out <- result{v, err}
	}()

	<-started
	p.Shutdown()
	if p.State() != ShuttingDown {
		t.Errorf("TestReduceShutdownInFlight: got State() == %s, want ShuttingDown", p.State())
	}
	close(release)

	r := <-out
	if r.err != nil {
		t.Fatalf("TestReduceShutdownInFlight: in-flight reduction failed: %s", r.err)
	}
	if r.v != 4999950000 {
		t.Errorf("TestReduceShutdownInFlight: got %d, want 4999950000", r.v)
	}
	p.Close()
	if p.State() != Terminated {
		t.Errorf("TestReduceShutdownInFlight: got State() == %s, want Terminated", p.State())
	}
}

var errMock = errors.New("mock error")

func TestReduceFailures(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)

	tests := []struct {
		desc      string
		transform Transform[int, int64]
		combiner  Combiner[int64]
		wantCause error
	}{
		{
			desc: "transform error",
			transform: func(ctx context.Context, i int) (int64, error) {
				if i == 500 {
					return 0, errMock
				}
				return int64(i), nil
			},
			combiner:  sum,
			wantCause: errMock,
		},
		{
			desc: "transform panic",
			transform: func(ctx context.Context, i int) (int64, error) {
				if i == 500 {
					panic(errMock)
				}
				return int64(i), nil
			},
			combiner:  sum,
			wantCause: errMock,
		},
		{
			desc:      "combiner panic",
			transform: identityInt,
			combiner: func(a, b int64) int64 {
				if b == 500 {
					panic("combiner broke")
				}
				return a + b
			},
		},
	}

	for _, test := range tests {
		contrib := &ContributionMap{}
		got, err := Reduce(context.Background(), p, Range(0, 10000), test.transform, test.combiner, 0, WithObserver(contrib.Observe))
		if !IsErrTaskExecution(err) {
			t.Errorf("TestReduceFailures(%s): got err == %v, want task execution failure", test.desc, err)
			continue
		}
		if test.wantCause != nil && !errors.Is(err, test.wantCause) {
			t.Errorf("TestReduceFailures(%s): got err == %v, want it to wrap %v", test.desc, err, test.wantCause)
		}
		if got != 0 {
			t.Errorf("TestReduceFailures(%s): got result %d, want none", test.desc, got)
		}
		if contrib.Total() >= 10000 {
			t.Errorf("TestReduceFailures(%s): all elements were observed, the failing one must not be", test.desc)
		}

		// The pool is still usable.
		after, err := Reduce(context.Background(), p, Range(0, 100), identityInt, sum, 0)
		if err != nil || after != 4950 {
			t.Errorf("TestReduceFailures(%s): reduction after failure: got (%d, %v), want (4950, nil)", test.desc, after, err)
		}
	}
}

func TestReduceCancel(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Reduce(ctx, p, Range(0, 1000), identityInt, sum, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("TestReduceCancel(cancelled before): got err == %v, want context.Canceled", err)
	}

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	contrib := &ContributionMap{}
	_, err := Reduce(
		ctx,
		p,
		Range(0, 100000),
		func(ctx context.Context, i int) (int64, error) {
			if i == 50000 {
				cancel()
			}
			return int64(i), nil
		},
		sum,
		0,
		WithObserver(contrib.Observe),
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("TestReduceCancel(cancelled during): got err == %v, want context.Canceled", err)
	}

	// Reduce has returned, so nothing can observe anymore.
	total := contrib.Total()
	p.Wait()
	if contrib.Total() != total {
		t.Errorf("TestReduceCancel: elements were observed after Reduce() returned")
	}
}

type found struct {
	Index int
	OK    bool
}

func TestReduceFirstMatch(t *testing.T) {
	t.Parallel()

	p := newPool(t, 8)

	match := func(i int) bool { return i%997 == 3 && i > 20000 }
	want := found{}
	for i := 0; i < 100000; i++ {
		if match(i) {
			want = found{Index: i, OK: true}
			break
		}
	}

	// Keeping the left value is associative but not commutative.
	got, err := Reduce(
		context.Background(),
		p,
		Range(0, 100000),
		func(ctx context.Context, i int) (found, error) {
			return found{Index: i, OK: match(i)}, nil
		},
		func(a, b found) found {
			if a.OK {
				return a
			}
			return b
		},
		found{},
		WithThreshold(64),
	)
	if err != nil {
		t.Fatalf("TestReduceFirstMatch: got err == %s", err)
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("TestReduceFirstMatch: -want/+got:\n%s", diff)
	}
}

func TestReduceConcurrentCallers(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)

	const callers = 8
	results := make([]int64, callers)
	totals := make([]int64, callers)
	errs := make([]error, callers)

	wg := sync.WaitGroup{}
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			contrib := &ContributionMap{}
			results[i], errs[i] = Reduce(context.Background(), p, Range(0, 100000+i), identityInt, sum, 0, WithObserver(contrib.Observe))
			totals[i] = contrib.Total()
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		n := int64(100000 + i)
		if errs[i] != nil {
			t.Errorf("TestReduceConcurrentCallers(%d): got err == %s", i, errs[i])
			continue
		}
		if want := n * (n - 1) / 2; results[i] != want {
			t.Errorf("TestReduceConcurrentCallers(%d): got %d, want %d", i, results[i], want)
		}
		if totals[i] != n {
			t.Errorf("TestReduceConcurrentCallers(%d): contributions total %d, want %d", i, totals[i], n)
		}
	}
}

func TestReduceSplits(t *testing.T) {
	t.Parallel()

	p := newPool(t, 4)

	got, err := Reduce(context.Background(), p, Range(0, 1000), identityInt, sum, 0, WithThreshold(1))
	if err != nil {
		t.Fatalf("TestReduceSplits: got err == %s", err)
	}
	if got != 499500 {
		t.Errorf("TestReduceSplits: got %d, want 499500", got)
	}
	p.Wait()

	// A binary split tree with 1000 leaves has 999 splits, each forking one half.
	stats := p.Stats()
	if stats.Submitted != 1 || stats.Forked != 999 {
		t.Errorf("TestReduceSplits: got Submitted == %d, Forked == %d, want 1, 999", stats.Submitted, stats.Forked)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -4} {
		if _, err := New("", size); !IsErrInvalidConfiguration(err) {
			t.Errorf("TestInvalidConfiguration(New size %d): got err == %v, want invalid configuration", size, err)
		}
	}
	if _, err := New("has-hyphen", 1); !IsErrInvalidConfiguration(err) {
		t.Errorf("TestInvalidConfiguration(New bad name): got err == %v, want invalid configuration", err)
	}

	p := newPool(t, 1)
	ctx := context.Background()

	if _, err := Reduce(ctx, p, Range(0, 10), identityInt, sum, 0, WithThreshold(0)); !IsErrInvalidConfiguration(err) {
		t.Errorf("TestInvalidConfiguration(threshold 0): got err == %v, want invalid configuration", err)
	}
	if _, err := Reduce[int, int64](ctx, p, Range(0, 10), nil, sum, 0); !IsErrInvalidConfiguration(err) {
		t.Errorf("TestInvalidConfiguration(nil transform): got err == %v, want invalid configuration", err)
	}
	if _, err := Reduce(ctx, p, Range(0, 10), identityInt, nil, 0); !IsErrInvalidConfiguration(err) {
		t.Errorf("TestInvalidConfiguration(nil combiner): got err == %v, want invalid configuration", err)
	}
	if _, err := Reduce(ctx, nil, Range(0, 10), identityInt, sum, 0); !IsErrInvalidConfiguration(err) {
		t.Errorf("TestInvalidConfiguration(nil pool): got err == %v, want invalid configuration", err)
	}
}
