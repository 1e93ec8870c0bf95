package metrics

import (
	"sync/atomic"
	"time"
)

const (
	// BucketCount is the number of latency buckets, the last one unbounded.
	BucketCount   = 8
	cacheLineSize = 64
)

// BucketBounds are the inclusive upper bounds of the finite buckets.
var BucketBounds = [BucketCount - 1]time.Duration{
	time.Millisecond,
	2 * time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Counters is a fixed set of padded atomic counters.
type Counters struct {
	slots []paddedCounter
}

func NewCounters(n int) *Counters {
	if n < 0 {
		n = 0
	}
	return &Counters{slots: make([]paddedCounter, n)}
}

func (c *Counters) Inc(i int) {
	if c == nil || i < 0 || i >= len(c.slots) {
		return
	}
	atomic.AddUint64(&c.slots[i].value, 1)
}

func (c *Counters) Add(i int, n uint64) {
	if c == nil || n == 0 || i < 0 || i >= len(c.slots) {
		return
	}
	atomic.AddUint64(&c.slots[i].value, n)
}

func (c *Counters) Load(i int) uint64 {
	if c == nil || i < 0 || i >= len(c.slots) {
		return 0
	}
	return atomic.LoadUint64(&c.slots[i].value)
}

func (c *Counters) Len() int {
	if c == nil {
		return 0
	}
	return len(c.slots)
}

// Histogram counts observations into BucketCount fixed buckets.
type Histogram struct {
	buckets [BucketCount]uint64
}

func (h *Histogram) Observe(d time.Duration) {
	if h == nil {
		return
	}
	atomic.AddUint64(&h.buckets[BucketIndex(d)], 1)
}

// Snapshot returns per-bucket counts, not cumulative.
func (h *Histogram) Snapshot() []uint64 {
	out := make([]uint64, BucketCount)
	if h == nil {
		return out
	}
	for i := range h.buckets {
		out[i] = atomic.LoadUint64(&h.buckets[i])
	}
	return out
}

// BucketIndex maps d to its bucket.
func BucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d <= bound {
			return i
		}
	}
	return BucketCount - 1
}
