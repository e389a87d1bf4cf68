package forkjoin

import "fmt"

// Source is a finite input to Reduce(). At must be safe to call concurrently and must
// not change while a Reduce() is using the Source.
type Source[T any] interface {
	// Len is the number of elements.
	Len() int
	// At returns the element at index i, 0 <= i < Len().
	At(i int) T
}

type sliceSource[T any] []T

func (s sliceSource[T]) Len() int   { return len(s) }
func (s sliceSource[T]) At(i int) T { return s[i] }

// Slice returns an ordered Source over s. s is not copied.
func Slice[T any](s []T) Source[T] {
	return sliceSource[T](s)
}

type rangeSource struct {
	low, high int
}

func (r rangeSource) Len() int     { return r.high - r.low }
func (r rangeSource) At(i int) int { return r.low + i }

// Range returns an ordered Source of the integers in [low, high) without allocating them.
// It panics if high < low.
func Range(low, high int) Source[int] {
	if high < low {
		panic(fmt.Sprintf("invalid range: %v:%v", low, high))
	}
	return rangeSource{low: low, high: high}
}

// Set returns an unordered Source over the keys of m. The keys are copied in map iteration
// order, which differs from call to call, so only Combiners that are also commutative
// give a stable result.
func Set[K comparable, V any](m map[K]V) Source[K] {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return sliceSource[K](keys)
}
