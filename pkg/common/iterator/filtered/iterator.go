package filtered

// Iterator is a cursor over an Iterable. It borrows the iterable it was
// created from, which must outlive it. Iterators are values: copying one
// yields an independently positioned cursor.
//
// Iterators are meant to be created through Begin, End, RBegin and REnd.
// A backward iterator moves towards lower positions on Next.
type Iterator[T any] struct {
	data    *Iterable[T]
	current int
	forward bool
}

// Next moves the iterator one step in its direction
func (it *Iterator[T]) Next() *Iterator[T] {
	if it.forward {
		it.current++
	} else {
		it.current--
	}
	return it
}

// Prev moves the iterator one step against its direction
func (it *Iterator[T]) Prev() *Iterator[T] {
	if it.forward {
		it.current--
	} else {
		it.current++
	}
	return it
}

// PostNext returns the state before stepping, then steps like Next
func (it *Iterator[T]) PostNext() Iterator[T] {
	tmp := *it
	it.Next()
	return tmp
}

// PostPrev returns the state before stepping, then steps like Prev
func (it *Iterator[T]) PostPrev() Iterator[T] {
	tmp := *it
	it.Prev()
	return tmp
}

// NotEqual compares positions only. Direction and backing iterable are
// ignored, so cursors from different iterables at the same position are
// not distinguished. Use SameAs for a strict comparison.
func (it Iterator[T]) NotEqual(other Iterator[T]) bool {
	return it.current != other.current
}

// Equal is the negation of NotEqual
func (it Iterator[T]) Equal(other Iterator[T]) bool {
	return it.current == other.current
}

// SameAs reports whether both iterators share position, direction and iterable
func (it Iterator[T]) SameAs(other Iterator[T]) bool {
	return it.current == other.current && it.forward == other.forward && it.data == other.data
}

// Position returns the logical position of the iterator
func (it Iterator[T]) Position() int {
	return it.current
}

// Forward reports the direction of the iterator
func (it Iterator[T]) Forward() bool {
	return it.forward
}

// Value returns the entry at the iterator position, false when out of range
func (it Iterator[T]) Value() (T, bool) {
	if it.data == nil {
		var zero T
		return zero, false
	}
	return it.data.At(it.current)
}
