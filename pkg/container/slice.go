// Package container provides in-memory sources of physics objects with
// named acceptance cuts, iterable through the filtered package.
package container

import (
	"github.com/jeremytregunna/aodkit/pkg/common/iterator"
	"github.com/jeremytregunna/aodkit/pkg/common/iterator/filtered"
)

// Cut tests a single entry and returns the reasons it fails, or
// iterator.Accepted when it passes.
type Cut[T any] func(entry T) iterator.Rejection

// Slice is a named, slice backed Source. The entries slice is borrowed, not
// copied, so changes made by the owner are visible through the container.
type Slice[T any] struct {
	name    string
	entries []T
	cuts    []Cut[T]
}

// NewSlice creates a container over entries with the given cuts
func NewSlice[T any](name string, entries []T, cuts ...Cut[T]) *Slice[T] {
	return &Slice[T]{
		name:    name,
		entries: entries,
		cuts:    cuts,
	}
}

// Name returns the container name
func (s *Slice[T]) Name() string {
	return s.name
}

// Add appends an entry
func (s *Slice[T]) Add(entry T) {
	s.entries = append(s.entries, entry)
}

// Reset replaces the entries, keeping the cuts
func (s *Slice[T]) Reset(entries []T) {
	s.entries = entries
}

// AddCut appends a cut to the selection
func (s *Slice[T]) AddCut(cut Cut[T]) {
	s.cuts = append(s.cuts, cut)
}

// Count returns the number of entries
func (s *Slice[T]) Count() int {
	return len(s.entries)
}

// AcceptedCount returns the number of entries passing all cuts
func (s *Slice[T]) AcceptedCount() int {
	n := 0
	for pos := range s.entries {
		if ok, _ := s.Accepts(pos); ok {
			n++
		}
	}
	return n
}

// Accepts applies all cuts to the entry at pos. Every cut is evaluated so
// the returned reason carries the bits of all failing cuts.
func (s *Slice[T]) Accepts(pos int) (bool, iterator.Rejection) {
	if pos < 0 || pos >= len(s.entries) {
		return false, iterator.RejectOutOfRange
	}

	var reason iterator.Rejection
	for _, cut := range s.cuts {
		reason |= cut(s.entries[pos])
	}
	return reason == iterator.Accepted, reason
}

// At returns the entry at pos
func (s *Slice[T]) At(pos int) (T, bool) {
	if pos < 0 || pos >= len(s.entries) {
		var zero T
		return zero, false
	}
	return s.entries[pos], true
}

// Iterable returns an iterable over all or accepted entries
func (s *Slice[T]) Iterable(useAccepted bool, opts ...filtered.Option) *filtered.Iterable[T] {
	return filtered.New[T](s, useAccepted, opts...)
}

// AcceptedIterable returns an iterable over accepted entries
func (s *Slice[T]) AcceptedIterable(opts ...filtered.Option) *filtered.Iterable[T] {
	return s.Iterable(true, opts...)
}

// AllIterable returns an iterable over all entries
func (s *Slice[T]) AllIterable(opts ...filtered.Option) *filtered.Iterable[T] {
	return s.Iterable(false, opts...)
}

// RejectionSummary counts rejected entries per reason bit
func (s *Slice[T]) RejectionSummary() map[iterator.Rejection]int {
	return s.Select().RejectionSummary()
}

// Select applies the cuts once to every entry and returns the result as a
// Source. Later changes to the container are not reflected in it.
func (s *Slice[T]) Select() *Selection[T] {
	sel := &Selection[T]{
		entries: s.entries,
		reasons: make([]iterator.Rejection, len(s.entries)),
	}
	for pos, entry := range s.entries {
		var reason iterator.Rejection
		for _, cut := range s.cuts {
			reason |= cut(entry)
		}
		sel.reasons[pos] = reason
		if reason == iterator.Accepted {
			sel.accepted++
		}
	}
	return sel
}

// Selection is a Source holding the cut results of a Slice at the time
// Select was called. Accepts and AcceptedCount never rerun the cuts.
type Selection[T any] struct {
	entries  []T
	reasons  []iterator.Rejection
	accepted int
}

// Count returns the number of entries
func (s *Selection[T]) Count() int {
	return len(s.entries)
}

// AcceptedCount returns the number of entries that passed all cuts
func (s *Selection[T]) AcceptedCount() int {
	return s.accepted
}

// Accepts returns the recorded cut result for pos
func (s *Selection[T]) Accepts(pos int) (bool, iterator.Rejection) {
	if pos < 0 || pos >= len(s.reasons) {
		return false, iterator.RejectOutOfRange
	}
	return s.reasons[pos] == iterator.Accepted, s.reasons[pos]
}

// At returns the entry at pos
func (s *Selection[T]) At(pos int) (T, bool) {
	if pos < 0 || pos >= len(s.entries) {
		var zero T
		return zero, false
	}
	return s.entries[pos], true
}

// Iterable returns an iterable over all or accepted entries
func (s *Selection[T]) Iterable(useAccepted bool, opts ...filtered.Option) *filtered.Iterable[T] {
	return filtered.New[T](s, useAccepted, opts...)
}

// RejectionSummary counts rejected entries per reason bit
func (s *Selection[T]) RejectionSummary() map[iterator.Rejection]int {
	summary := make(map[iterator.Rejection]int)
	for _, reason := range s.reasons {
		for bit := iterator.Rejection(1); bit != 0 && reason != 0; bit <<= 1 {
			if reason.Has(bit) {
				summary[bit]++
			}
		}
	}
	return summary
}

var (
	_ iterator.Source[int] = (*Slice[int])(nil)
	_ iterator.Source[int] = (*Selection[int])(nil)
)
