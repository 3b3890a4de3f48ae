package filtered

import (
	"encoding/binary"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"
)

// AcceptedSet returns the source positions covered by the iterable.
// For an iterable over all entries this is [0, Size()).
func (c *Iterable[T]) AcceptedSet() *roaring.Bitmap {
	rb := roaring.New()
	if c.useAccepted {
		for _, pos := range c.acceptIndices {
			rb.Add(uint32(pos))
		}
		return rb
	}
	if n := c.Size(); n > 0 {
		rb.AddRange(0, uint64(n))
	}
	return rb
}

// Fingerprint returns a digest of the iteration mode and the covered source
// positions. Two iterables with equal fingerprints visit the same positions.
func (c *Iterable[T]) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte

	if c.useAccepted {
		buf[0] = 1
	}
	d.Write(buf[:1])

	if !c.useAccepted {
		binary.LittleEndian.PutUint64(buf[:], uint64(c.Size()))
		d.Write(buf[:])
		return d.Sum64()
	}

	for _, pos := range c.acceptIndices {
		binary.LittleEndian.PutUint64(buf[:], uint64(pos))
		d.Write(buf[:])
	}
	return d.Sum64()
}
