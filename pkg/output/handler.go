// Package output defines where analysis tasks write their reduced events.
package output

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/jeremytregunna/aodkit/pkg/aod"
)

var (
	ErrDuplicateBranch = errors.New("branch already registered")
	ErrBufferFull      = errors.New("output buffer full")
	ErrNoBranches      = errors.New("no branches registered")
)

// Handler receives reduced events from analysis tasks
type Handler interface {
	// RegisterBranch declares an output branch filled by owner
	RegisterBranch(name, owner string) error
	// Branches lists the registered branch names in registration order
	Branches() []string
	// Write stores one reduced event
	Write(ctx context.Context, ev *aod.Event) error
	// Flush finishes all pending writes
	Flush(ctx context.Context) error
}

// Memory is a Handler buffering events in a FIFO. A capacity of zero means
// unbounded.
type Memory struct {
	mu       sync.Mutex
	capacity int
	events   *queue.Queue
	branches []string
	owners   map[string]string
	written  uint64
	flushes  uint64
}

// NewMemory creates an in-memory handler holding at most capacity events
func NewMemory(capacity int) *Memory {
	return &Memory{
		capacity: capacity,
		events:   queue.New(),
		owners:   make(map[string]string),
	}
}

// RegisterBranch implements Handler
func (m *Memory) RegisterBranch(name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, exists := m.owners[name]; exists {
		return fmt.Errorf("%w: %s (owned by %s)", ErrDuplicateBranch, name, prev)
	}
	m.owners[name] = owner
	m.branches = append(m.branches, name)
	return nil
}

// Branches implements Handler
func (m *Memory) Branches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.branches...)
}

// Owner returns the owner of a registered branch
func (m *Memory) Owner(branch string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[branch]
	return owner, ok
}

// Write implements Handler
func (m *Memory) Write(ctx context.Context, ev *aod.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.branches) == 0 {
		return ErrNoBranches
	}
	if m.capacity > 0 && m.events.Length() >= m.capacity {
		return fmt.Errorf("%w: capacity %d", ErrBufferFull, m.capacity)
	}
	m.events.Add(ev)
	m.written++
	return nil
}

// Flush implements Handler. Buffered events stay available to Pop and Drain.
func (m *Memory) Flush(ctx context.Context) error {
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
	return ctx.Err()
}

// Len returns the number of buffered events
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events.Length()
}

// Written returns the number of events accepted since creation
func (m *Memory) Written() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

// Peek returns the i-th buffered event without removing it
func (m *Memory) Peek(i int) (*aod.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= m.events.Length() {
		return nil, false
	}
	return m.events.Get(i).(*aod.Event), true
}

// Pop removes and returns the oldest buffered event
func (m *Memory) Pop() (*aod.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events.Length() == 0 {
		return nil, false
	}
	return m.events.Remove().(*aod.Event), true
}

// Drain removes and returns all buffered events, oldest first
func (m *Memory) Drain() []*aod.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*aod.Event, 0, m.events.Length())
	for m.events.Length() > 0 {
		out = append(out, m.events.Remove().(*aod.Event))
	}
	return out
}

var _ Handler = (*Memory)(nil)
