// Package filtered provides position based iterables over an iterator.Source,
// optionally restricted to the entries the source accepts.
//
// An Iterable never owns its source. When iterating accepted entries it keeps a
// table of accepted source positions that is built once and never refreshed
// automatically: the source must not change its acceptance relevant state
// between building the table and the end of any traversal using it. Call
// Rebuild to pick up such changes.
package filtered

import (
	"iter"
	"slices"

	"github.com/jeremytregunna/aodkit/pkg/common/iterator"
	"github.com/jeremytregunna/aodkit/pkg/common/log"
)

// Option configures an Iterable at construction time
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger sets the logger used to report inconsistent sources
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Iterable exposes random access and bidirectional iteration over a Source,
// either over all entries or over accepted entries only.
type Iterable[T any] struct {
	source        iterator.Source[T]
	acceptIndices []int
	useAccepted   bool
	logger        log.Logger
}

// New creates an iterable over source. If useAccepted is true the table of
// accepted positions is built immediately. A source reporting an accepted count
// different from what its selection yields is tolerated and logged.
func New[T any](source iterator.Source[T], useAccepted bool, opts ...Option) *Iterable[T] {
	it := newIterable(source, useAccepted, opts)
	if useAccepted {
		if reported, actual := it.buildAcceptIndices(); reported != actual {
			it.logger.Warn("accepted count mismatch: source reported %d, selection accepted %d", reported, actual)
		}
	}
	return it
}

// NewStrict is like New but fails with a *ConsistencyError when the source's
// reported accepted count does not match what its selection yields.
func NewStrict[T any](source iterator.Source[T], useAccepted bool, opts ...Option) (*Iterable[T], error) {
	it := newIterable(source, useAccepted, opts)
	if useAccepted {
		if reported, actual := it.buildAcceptIndices(); reported != actual {
			return nil, &ConsistencyError{Reported: reported, Actual: actual}
		}
	}
	return it, nil
}

func newIterable[T any](source iterator.Source[T], useAccepted bool, opts []Option) *Iterable[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Iterable[T]{
		source:      source,
		useAccepted: useAccepted,
		logger:      log.WithComponent(o.logger, "iterable"),
	}
}

// buildAcceptIndices scans the source and replaces the accept table.
// The reported count only sizes the initial allocation, the table grows if
// the selection accepts more.
func (c *Iterable[T]) buildAcceptIndices() (reported, actual int) {
	if c.source == nil {
		c.acceptIndices = nil
		return 0, 0
	}

	reported = c.source.AcceptedCount()
	indices := make([]int, 0, max(reported, 0))
	for pos := 0; pos < c.source.Count(); pos++ {
		if ok, _ := c.source.Accepts(pos); ok {
			indices = append(indices, pos)
		}
	}

	c.acceptIndices = slices.Clip(indices)
	return reported, len(indices)
}

// Clone returns a copy sharing the source but owning its own accept table
func (c *Iterable[T]) Clone() *Iterable[T] {
	cp := *c
	if c.acceptIndices != nil {
		cp.acceptIndices = append([]int(nil), c.acceptIndices...)
	}
	return &cp
}

// Rebuild rescans the source and replaces the accept table.
// It is a no-op when iterating over all entries.
func (c *Iterable[T]) Rebuild() {
	if !c.useAccepted {
		return
	}
	if reported, actual := c.buildAcceptIndices(); reported != actual {
		c.logger.Warn("accepted count mismatch: source reported %d, selection accepted %d", reported, actual)
	}
}

// SetUseAccepted switches between iterating all and accepted entries.
// Enabling accepted iteration always builds a fresh table.
func (c *Iterable[T]) SetUseAccepted(useAccepted bool) {
	c.useAccepted = useAccepted
	if useAccepted {
		c.buildAcceptIndices()
	} else {
		c.acceptIndices = nil
	}
}

// UseAccepted reports whether only accepted entries are iterated
func (c *Iterable[T]) UseAccepted() bool {
	return c.useAccepted
}

// Source returns the underlying source
func (c *Iterable[T]) Source() iterator.Source[T] {
	return c.source
}

// AcceptIndices returns a copy of the accept table
func (c *Iterable[T]) AcceptIndices() []int {
	return append([]int(nil), c.acceptIndices...)
}

// Size returns the number of iterable entries
func (c *Iterable[T]) Size() int {
	if c.useAccepted {
		return len(c.acceptIndices)
	}
	if c.source == nil {
		return 0
	}
	return c.source.Count()
}

// SourcePosition maps a logical position to the position inside the source
func (c *Iterable[T]) SourcePosition(pos int) (int, bool) {
	if pos < 0 || pos >= c.Size() {
		return -1, false
	}
	if c.useAccepted {
		return c.acceptIndices[pos], true
	}
	return pos, true
}

// At returns the entry at the logical position pos. When iterating accepted
// entries pos refers to the pos-th accepted entry, otherwise to the pos-th
// entry of the source. Out of range positions return false.
func (c *Iterable[T]) At(pos int) (T, bool) {
	srcPos, ok := c.SourcePosition(pos)
	if !ok {
		var zero T
		return zero, false
	}
	return c.source.At(srcPos)
}

// Begin returns a forward iterator at the first entry
func (c *Iterable[T]) Begin() Iterator[T] {
	return Iterator[T]{data: c, current: 0, forward: true}
}

// End returns the forward sentinel one past the last entry
func (c *Iterable[T]) End() Iterator[T] {
	return Iterator[T]{data: c, current: c.Size(), forward: true}
}

// RBegin returns a backward iterator at the last entry
func (c *Iterable[T]) RBegin() Iterator[T] {
	return Iterator[T]{data: c, current: c.Size() - 1, forward: false}
}

// REnd returns the backward sentinel one before the first entry
func (c *Iterable[T]) REnd() Iterator[T] {
	return Iterator[T]{data: c, current: -1, forward: false}
}

// All yields logical positions and entries from first to last.
// Entries the source cannot return are yielded as the zero value.
func (c *Iterable[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for it, end := c.Begin(), c.End(); it.NotEqual(end); it.Next() {
			v, _ := it.Value()
			if !yield(it.Position(), v) {
				return
			}
		}
	}
}

// Backward yields logical positions and entries from last to first
func (c *Iterable[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for it, end := c.RBegin(), c.REnd(); it.NotEqual(end); it.Next() {
			v, _ := it.Value()
			if !yield(it.Position(), v) {
				return
			}
		}
	}
}
