package filtered

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jeremytregunna/aodkit/pkg/common/iterator"
	"github.com/jeremytregunna/aodkit/pkg/common/log"
)

// mockSource is an in-memory source accepting the positions in accepted.
// reportedAccepted overrides AcceptedCount when non-negative.
type mockSource struct {
	entries          []string
	accepted         map[int]bool
	reportedAccepted int
}

func newMockSource(entries []string, accepted ...int) *mockSource {
	m := &mockSource{entries: entries, accepted: make(map[int]bool), reportedAccepted: -1}
	for _, pos := range accepted {
		m.accepted[pos] = true
	}
	return m
}

func (m *mockSource) Count() int { return len(m.entries) }

func (m *mockSource) AcceptedCount() int {
	if m.reportedAccepted >= 0 {
		return m.reportedAccepted
	}
	n := 0
	for pos := range m.entries {
		if m.accepted[pos] {
			n++
		}
	}
	return n
}

func (m *mockSource) Accepts(pos int) (bool, iterator.Rejection) {
	if pos < 0 || pos >= len(m.entries) {
		return false, iterator.RejectOutOfRange
	}
	if m.accepted[pos] {
		return true, iterator.Accepted
	}
	return false, iterator.RejectUser
}

func (m *mockSource) At(pos int) (string, bool) {
	if pos < 0 || pos >= len(m.entries) {
		return "", false
	}
	return m.entries[pos], true
}

var _ iterator.Source[string] = (*mockSource)(nil)

func quiet() Option {
	return WithLogger(log.Discard())
}

func collectForward(c *Iterable[string]) []string {
	var out []string
	for it := c.Begin(); it.NotEqual(c.End()); it.Next() {
		v, ok := it.Value()
		if !ok {
			out = append(out, "<nil>")
			continue
		}
		out = append(out, v)
	}
	return out
}

func collectBackward(c *Iterable[string]) []string {
	var out []string
	for it := c.RBegin(); it.NotEqual(c.REnd()); it.Next() {
		v, _ := it.Value()
		out = append(out, v)
	}
	return out
}

func TestFilteredScenario(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D", "E"}, 1, 3)
	c := New[string](src, true, quiet())

	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}

	tests := []struct {
		pos    int
		want   string
		wantOK bool
	}{
		{0, "B", true},
		{1, "D", true},
		{2, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		got, ok := c.At(tt.pos)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("At(%d) = (%q, %v), want (%q, %v)", tt.pos, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestUnfilteredScenario(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D", "E"}, 1, 3)
	c := New[string](src, false, quiet())

	if c.Size() != 5 {
		t.Fatalf("expected size 5, got %d", c.Size())
	}
	if v, ok := c.At(4); !ok || v != "E" {
		t.Errorf("At(4) = (%q, %v), want (E, true)", v, ok)
	}
	if _, ok := c.At(5); ok {
		t.Errorf("At(5) should be absent")
	}
	if _, ok := c.At(-1); ok {
		t.Errorf("At(-1) should be absent")
	}

	// Pass-through for every position
	for i := 0; i < src.Count(); i++ {
		got, _ := c.At(i)
		want, _ := src.At(i)
		if got != want {
			t.Errorf("At(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestEvenPositions(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 10} {
		entries := make([]string, n)
		var even []int
		for i := range entries {
			entries[i] = string(rune('a' + i))
			if i%2 == 0 {
				even = append(even, i)
			}
		}
		src := newMockSource(entries, even...)
		c := New[string](src, true, quiet())

		if want := (n + 1) / 2; c.Size() != want {
			t.Errorf("n=%d: expected size %d, got %d", n, want, c.Size())
		}
		for k := 0; k < c.Size(); k++ {
			got, _ := c.At(k)
			want, _ := src.At(2 * k)
			if got != want {
				t.Errorf("n=%d: At(%d) = %q, want %q", n, k, got, want)
			}
		}
		if _, ok := c.At(c.Size()); ok {
			t.Errorf("n=%d: At(Size()) should be absent", n)
		}
	}
}

func TestTraversal(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D", "E"}, 0, 2, 3)

	for _, useAccepted := range []bool{false, true} {
		c := New[string](src, useAccepted, quiet())

		var byIndex []string
		for i := 0; i < c.Size(); i++ {
			v, _ := c.At(i)
			byIndex = append(byIndex, v)
		}

		if diff := cmp.Diff(byIndex, collectForward(c)); diff != "" {
			t.Errorf("useAccepted=%v forward traversal mismatch (-want +got):\n%s", useAccepted, diff)
		}

		var reversed []string
		for i := len(byIndex) - 1; i >= 0; i-- {
			reversed = append(reversed, byIndex[i])
		}
		if diff := cmp.Diff(reversed, collectBackward(c)); diff != "" {
			t.Errorf("useAccepted=%v backward traversal mismatch (-want +got):\n%s", useAccepted, diff)
		}
	}
}

func TestSeqTraversal(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D"}, 1, 2, 3)
	c := New[string](src, true, quiet())

	var positions []int
	var values []string
	for pos, v := range c.All() {
		positions = append(positions, pos)
		values = append(values, v)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, positions); diff != "" {
		t.Errorf("All positions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B", "C", "D"}, values); diff != "" {
		t.Errorf("All values mismatch (-want +got):\n%s", diff)
	}

	positions = positions[:0]
	for pos := range c.Backward() {
		positions = append(positions, pos)
		if pos == 1 {
			break
		}
	}
	if diff := cmp.Diff([]int{2, 1}, positions); diff != "" {
		t.Errorf("Backward with early break mismatch (-want +got):\n%s", diff)
	}
}

func TestSentinels(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C"})
	c := New[string](src, false, quiet())

	if p := c.Begin().Position(); p != 0 {
		t.Errorf("Begin at %d", p)
	}
	if p := c.End().Position(); p != 3 {
		t.Errorf("End at %d", p)
	}
	if p := c.RBegin().Position(); p != 2 {
		t.Errorf("RBegin at %d", p)
	}
	if p := c.REnd().Position(); p != -1 {
		t.Errorf("REnd at %d", p)
	}
	if !c.Begin().Forward() || !c.End().Forward() || c.RBegin().Forward() || c.REnd().Forward() {
		t.Errorf("unexpected iterator directions")
	}
	if _, ok := c.End().Value(); ok {
		t.Errorf("End should dereference to absent")
	}
	if _, ok := c.REnd().Value(); ok {
		t.Errorf("REnd should dereference to absent")
	}

	// An empty filtered iterable terminates immediately in both directions
	empty := New[string](src, true, quiet())
	if empty.Begin().NotEqual(empty.End()) || empty.RBegin().NotEqual(empty.REnd()) {
		t.Errorf("empty iterable should have begin == end")
	}
}

func TestCopySemantics(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D", "E"}, 1, 3)
	orig := New[string](src, true, quiet())

	cp := orig.Clone()
	cp.SetUseAccepted(false)
	if orig.Size() != 2 || cp.Size() != 5 {
		t.Fatalf("mode change leaked: orig=%d copy=%d", orig.Size(), cp.Size())
	}

	// Changing the source and rebuilding the copy leaves the original table untouched
	cp2 := orig.Clone()
	src.accepted[4] = true
	cp2.Rebuild()
	if cp2.Size() != 3 {
		t.Errorf("rebuilt copy expected size 3, got %d", cp2.Size())
	}
	if orig.Size() != 2 {
		t.Errorf("original expected size 2 after copy rebuild, got %d", orig.Size())
	}
	if v, _ := orig.At(1); v != "D" {
		t.Errorf("original At(1) = %q, want D", v)
	}

	// A plain struct copy is also independent because tables are replaced, not edited
	cp3 := *orig
	cp3.SetUseAccepted(true)
	if diff := cmp.Diff([]int{1, 3}, orig.AcceptIndices()); diff != "" {
		t.Errorf("original table changed (-want +got):\n%s", diff)
	}
}

func TestSourcePosition(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D"}, 0, 3)
	c := New[string](src, true, quiet())

	if pos, ok := c.SourcePosition(1); !ok || pos != 3 {
		t.Errorf("SourcePosition(1) = (%d, %v), want (3, true)", pos, ok)
	}
	if _, ok := c.SourcePosition(2); ok {
		t.Errorf("SourcePosition(2) should be out of range")
	}
}

func TestInconsistentSource(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D", "E"}, 0, 1, 2, 4)
	src.reportedAccepted = 1

	var buf bytes.Buffer
	logger := log.NewStandardLogger(log.WithOutput(&buf))
	c := New[string](src, true, WithLogger(logger))

	// The table grows past the reported count
	if c.Size() != 4 {
		t.Fatalf("expected size 4, got %d", c.Size())
	}
	if v, _ := c.At(3); v != "E" {
		t.Errorf("At(3) = %q, want E", v)
	}
	if !strings.Contains(buf.String(), "accepted count mismatch") {
		t.Errorf("expected mismatch warning, got: %s", buf.String())
	}

	_, err := NewStrict[string](src, true, quiet())
	var ce *ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if ce.Reported != 1 || ce.Actual != 4 {
		t.Errorf("unexpected counts in %v", ce)
	}

	// Unfiltered construction never scans, so it cannot fail
	if _, err := NewStrict[string](src, false, quiet()); err != nil {
		t.Errorf("unfiltered NewStrict failed: %v", err)
	}

	src.reportedAccepted = -1
	if _, err := NewStrict[string](src, true, quiet()); err != nil {
		t.Errorf("consistent NewStrict failed: %v", err)
	}
}

func TestStaleTable(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D"}, 1, 3)
	c := New[string](src, true, quiet())

	// Shrinking the source invalidates the table but must not panic
	src.entries = src.entries[:2]
	if _, ok := c.At(1); ok {
		t.Errorf("stale position should be absent")
	}
	if v, ok := c.At(0); !ok || v != "B" {
		t.Errorf("At(0) = (%q, %v), want (B, true)", v, ok)
	}

	c.Rebuild()
	if c.Size() != 1 {
		t.Errorf("expected size 1 after rebuild, got %d", c.Size())
	}
}

func TestNilSource(t *testing.T) {
	c := New[string](nil, true, quiet())
	if c.Size() != 0 {
		t.Errorf("expected size 0, got %d", c.Size())
	}
	c.SetUseAccepted(false)
	if c.Size() != 0 {
		t.Errorf("expected size 0, got %d", c.Size())
	}
	if _, ok := c.At(0); ok {
		t.Errorf("nil source should have no entries")
	}
}

func TestAcceptedSetAndFingerprint(t *testing.T) {
	src := newMockSource([]string{"A", "B", "C", "D", "E"}, 1, 3)

	filtered := New[string](src, true, quiet())
	if diff := cmp.Diff([]uint32{1, 3}, filtered.AcceptedSet().ToArray()); diff != "" {
		t.Errorf("filtered set mismatch (-want +got):\n%s", diff)
	}

	all := New[string](src, false, quiet())
	if got := all.AcceptedSet().GetCardinality(); got != 5 {
		t.Errorf("expected 5 positions, got %d", got)
	}

	if filtered.Fingerprint() != filtered.Clone().Fingerprint() {
		t.Errorf("clone fingerprint differs")
	}
	if filtered.Fingerprint() == all.Fingerprint() {
		t.Errorf("filtered and unfiltered fingerprints should differ")
	}

	other := New[string](newMockSource([]string{"A", "B", "C", "D", "E"}, 1, 4), true, quiet())
	if filtered.Fingerprint() == other.Fingerprint() {
		t.Errorf("different selections should have different fingerprints")
	}
}
