package core

import "sort"

// Keyed is implemented by values stored in an Accumulator. Two values with
// the same key must be interchangeable.
type Keyed interface {
	SortKey() string
}

// Accumulator is an append-only collection whose merge is associative and
// commutative: values are kept in key order, so the merged result does not
// depend on the order in which branches contributed.
type Accumulator[T Keyed] []T

// Append returns a new accumulator holding a's values plus items.
func (a Accumulator[T]) Append(items ...T) Accumulator[T] {
	out := make(Accumulator[T], 0, len(a)+len(items))
	out = append(out, a...)
	out = append(out, items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey() < out[j].SortKey()
	})
	return out
}

// Merge combines two accumulators.
func (a Accumulator[T]) Merge(b Accumulator[T]) Accumulator[T] {
	return a.Append(b...)
}

// Len returns the number of values.
func (a Accumulator[T]) Len() int {
	return len(a)
}

// Values returns a copy of the values in key order.
func (a Accumulator[T]) Values() []T {
	out := make([]T, len(a))
	copy(out, a)
	return out
}
