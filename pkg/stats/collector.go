package stats

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// OperationType defines the type of operation being tracked
type OperationType string

// Analysis operation types
const (
	OpEvent     OperationType = "event"
	OpReplicate OperationType = "replicate"
	OpWrite     OperationType = "write"
	OpSkip      OperationType = "skip"
	OpFlush     OperationType = "flush"
)

// AtomicCollector provides statistics collection with minimal contention
// using atomic counters. Maps are only locked when a new key appears.
type AtomicCollector struct {
	counts   map[OperationType]*atomic.Uint64
	countsMu sync.RWMutex

	lastOpTime   map[OperationType]time.Time
	lastOpTimeMu sync.RWMutex

	branches   map[string]*BranchStats
	branchesMu sync.RWMutex

	rejections   map[string]*atomic.Uint64
	rejectionsMu sync.RWMutex

	errors   map[string]*atomic.Uint64
	errorsMu sync.RWMutex

	latencies   map[OperationType]*LatencyTracker
	latenciesMu sync.RWMutex
}

// BranchStats counts entries read from and kept in one output branch
type BranchStats struct {
	Seen atomic.Uint64
	Kept atomic.Uint64
}

// LatencyTracker maintains running statistics about operation latencies
type LatencyTracker struct {
	count atomic.Uint64
	sum   atomic.Uint64
	max   atomic.Uint64
	min   atomic.Uint64
}

// NewAtomicCollector creates a new atomic statistics collector
func NewAtomicCollector() *AtomicCollector {
	return &AtomicCollector{
		counts:     make(map[OperationType]*atomic.Uint64),
		lastOpTime: make(map[OperationType]time.Time),
		branches:   make(map[string]*BranchStats),
		rejections: make(map[string]*atomic.Uint64),
		errors:     make(map[string]*atomic.Uint64),
		latencies:  make(map[OperationType]*LatencyTracker),
	}
}

// TrackOperation increments the counter for the specified operation type
func (c *AtomicCollector) TrackOperation(op OperationType) {
	getOrCreate(&c.countsMu, c.counts, op, newCounter).Add(1)

	c.lastOpTimeMu.Lock()
	c.lastOpTime[op] = time.Now()
	c.lastOpTimeMu.Unlock()
}

// TrackOperationWithLatency tracks an operation and its latency
func (c *AtomicCollector) TrackOperationWithLatency(op OperationType, latencyNs uint64) {
	c.TrackOperation(op)

	tracker := getOrCreate(&c.latenciesMu, c.latencies, op, func() *LatencyTracker { return &LatencyTracker{} })
	tracker.count.Add(1)
	tracker.sum.Add(latencyNs)

	for {
		current := tracker.max.Load()
		if latencyNs <= current || tracker.max.CompareAndSwap(current, latencyNs) {
			break
		}
	}

	for {
		current := tracker.min.Load()
		if current != 0 && latencyNs >= current {
			break
		}
		if tracker.min.CompareAndSwap(current, latencyNs) {
			break
		}
	}
}

// TrackError increments the counter for the specified error type
func (c *AtomicCollector) TrackError(errorType string) {
	getOrCreate(&c.errorsMu, c.errors, errorType, newCounter).Add(1)
}

// TrackBranch adds to the seen and kept counters of a branch
func (c *AtomicCollector) TrackBranch(branch string, seen, kept uint64) {
	bs := getOrCreate(&c.branchesMu, c.branches, branch, func() *BranchStats { return &BranchStats{} })
	bs.Seen.Add(seen)
	bs.Kept.Add(kept)
}

// TrackRejection adds count rejected entries for reason
func (c *AtomicCollector) TrackRejection(reason string, count uint64) {
	getOrCreate(&c.rejectionsMu, c.rejections, reason, newCounter).Add(count)
}

// Count returns the number of tracked operations of a type
func (c *AtomicCollector) Count(op OperationType) uint64 {
	c.countsMu.RLock()
	defer c.countsMu.RUnlock()
	if counter, ok := c.counts[op]; ok {
		return counter.Load()
	}
	return 0
}

// GetStats returns all statistics as a map
func (c *AtomicCollector) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})

	c.countsMu.RLock()
	for op, counter := range c.counts {
		stats[string(op)+"_ops"] = counter.Load()
	}
	c.countsMu.RUnlock()

	c.lastOpTimeMu.RLock()
	for op, timestamp := range c.lastOpTime {
		stats["last_"+string(op)+"_time"] = timestamp.UnixNano()
	}
	c.lastOpTimeMu.RUnlock()

	c.branchesMu.RLock()
	for name, bs := range c.branches {
		stats["branch_"+name+"_seen"] = bs.Seen.Load()
		stats["branch_"+name+"_kept"] = bs.Kept.Load()
	}
	c.branchesMu.RUnlock()

	c.rejectionsMu.RLock()
	rejections := make(map[string]uint64, len(c.rejections))
	for reason, counter := range c.rejections {
		rejections[reason] = counter.Load()
	}
	c.rejectionsMu.RUnlock()
	stats["rejections"] = rejections

	c.errorsMu.RLock()
	errorStats := make(map[string]uint64, len(c.errors))
	for errType, counter := range c.errors {
		errorStats[errType] = counter.Load()
	}
	c.errorsMu.RUnlock()
	stats["errors"] = errorStats

	c.latenciesMu.RLock()
	for op, tracker := range c.latencies {
		count := tracker.count.Load()
		if count == 0 {
			continue
		}

		latencyStats := map[string]interface{}{
			"count":  count,
			"avg_ns": tracker.sum.Load() / count,
		}
		if min := tracker.min.Load(); min != 0 {
			latencyStats["min_ns"] = min
		}
		if max := tracker.max.Load(); max != 0 {
			latencyStats["max_ns"] = max
		}

		stats[string(op)+"_latency"] = latencyStats
	}
	c.latenciesMu.RUnlock()

	return stats
}

// GetStatsFiltered returns statistics whose key starts with prefix
func (c *AtomicCollector) GetStatsFiltered(prefix string) map[string]interface{} {
	filtered := make(map[string]interface{})
	for key, value := range c.GetStats() {
		if strings.HasPrefix(key, prefix) {
			filtered[key] = value
		}
	}
	return filtered
}

func newCounter() *atomic.Uint64 {
	return &atomic.Uint64{}
}

// getOrCreate returns m[key], creating it under the write lock on first use
func getOrCreate[K comparable, V any](mu *sync.RWMutex, m map[K]V, key K, create func() V) V {
	mu.RLock()
	v, exists := m[key]
	mu.RUnlock()
	if exists {
		return v
	}

	mu.Lock()
	defer mu.Unlock()
	if v, exists = m[key]; !exists {
		v = create()
		m[key] = v
	}
	return v
}
