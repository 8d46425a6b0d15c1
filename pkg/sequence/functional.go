package sequence

import (
	"iter"
	"slices"
)

// Iterator is a generic, immutable, chainable iterator for any type T.
// Every terminal operation runs the underlying sequence again, so an
// Iterator built over live data always reflects the data at call time.
type Iterator[T any] struct {
	seq iter.Seq[T]
}

// From creates a new Iterator from a slice of T.
func From[T any](data []T) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			for _, v := range data {
				if !yield(v) {
					return
				}
			}
		},
	}
}

// FromSeq wraps an existing iter.Seq.
func FromSeq[T any](seq iter.Seq[T]) *Iterator[T] {
	if seq == nil {
		seq = func(func(T) bool) {}
	}
	return &Iterator[T]{seq: seq}
}

// Seq returns the underlying sequence function for the iterator.
func (i *Iterator[T]) Seq() iter.Seq[T] {
	return i.seq
}

// Collect exhausts the iterator and returns a slice of all elements.
func (i *Iterator[T]) Collect() []T {
	var out []T
	i.seq(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Sort returns a new Iterator with elements stably sorted by cmp.
// Sorting is eager: the source is drained when the result is iterated.
func (i *Iterator[T]) Sort(cmp func(a, b T) int) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			data := i.Collect()
			slices.SortStableFunc(data, cmp)
			for _, v := range data {
				if !yield(v) {
					return
				}
			}
		},
	}
}

// Filter returns a new Iterator containing only elements that satisfy the predicate.
func (i *Iterator[T]) Filter(pred func(T) bool) *Iterator[T] {
	return &Iterator[T]{
		seq: func(yield func(T) bool) {
			i.seq(func(v T) bool {
				if pred(v) {
					return yield(v)
				}
				return true
			})
		},
	}
}

// Find returns the first element matching the predicate, or false if not found.
func (i *Iterator[T]) Find(pred func(T) bool) (T, bool) {
	return i.Filter(pred).First()
}

// First returns the first element, or false if empty.
func (i *Iterator[T]) First() (T, bool) {
	var first T
	found := false
	i.seq(func(v T) bool {
		first = v
		found = true
		return false
	})
	return first, found
}
