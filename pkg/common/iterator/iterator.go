package iterator

// Rejection is a bitmask describing why an entry was not accepted.
// A zero value means the entry passed every selection.
type Rejection uint32

const (
	// Accepted is the rejection code of an entry that passed all selections
	Accepted Rejection = 0

	// RejectOutOfRange is reported for positions outside [0, Count())
	RejectOutOfRange Rejection = 1 << 0

	// RejectUser is the first bit free for container specific selections.
	// Callers define their own reasons as RejectUser << n.
	RejectUser Rejection = 1 << 8
)

// Has reports whether all bits of reason are set in r
func (r Rejection) Has(reason Rejection) bool {
	return r&reason == reason && reason != 0
}

// Source defines the capability consumed by the index based iterables.
// It is an externally owned, read-only, indexable collection whose entries
// can be tested against an acceptance selection.
type Source[T any] interface {
	// Count returns the total number of entries
	Count() int

	// AcceptedCount returns the number of entries passing the selection
	AcceptedCount() int

	// Accepts tests the entry at pos and returns the rejection reason if it fails
	Accepts(pos int) (bool, Rejection)

	// At returns the entry at pos, or false when pos is out of range
	At(pos int) (T, bool)
}
