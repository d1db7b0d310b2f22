package memory

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/objbridge/errors"
)

// Stats is a snapshot of a Counting allocator.
type Stats struct {
	Allocs    int64 `yaml:"allocs"`
	Frees     int64 `yaml:"frees"`
	LiveBytes int64 `yaml:"live_bytes"`
	PeakBytes int64 `yaml:"peak_bytes"`
}

// Live returns the number of allocations not yet freed.
func (s Stats) Live() int64 {
	return s.Allocs - s.Frees
}

// Counting wraps an allocator with allocation accounting and an optional
// live-byte limit.
type Counting struct {
	inner  Allocator
	onFree func(n int)

	allocs    atomic.Int64
	frees     atomic.Int64
	liveBytes atomic.Int64
	peakBytes atomic.Int64
	limit     atomic.Int64
	mu        sync.RWMutex
}

func NewCounting(inner Allocator) *Counting {
	return &Counting{inner: inner}
}

func (c *Counting) Name() string { return c.inner.Name() }

// Inner returns the wrapped allocator.
func (c *Counting) Inner() Allocator { return c.inner }

// SetLimit caps live bytes; 0 disables the limit.
func (c *Counting) SetLimit(n int64) {
	c.limit.Store(n)
}

// OnFree registers a hook called with the size of every freed block.
func (c *Counting) OnFree(fn func(n int)) {
	c.mu.Lock()
	c.onFree = fn
	c.mu.Unlock()
}

// Alloc reserves n bytes against the limit before asking the inner
// allocator, so concurrent callers cannot overshoot it together.
func (c *Counting) Alloc(n int) ([]byte, error) {
	live := c.liveBytes.Add(int64(n))
	if limit := c.limit.Load(); limit > 0 && live > limit {
		c.liveBytes.Add(-int64(n))
		return nil, errors.New(errors.PhaseAllocate, errors.KindAllocation).
			Detail("allocation of %d bytes exceeds limit %d", n, limit).
			Build()
	}

	b, err := c.inner.Alloc(n)
	if err != nil {
		c.liveBytes.Add(-int64(n))
		return nil, err
	}

	c.allocs.Add(1)
	for {
		peak := c.peakBytes.Load()
		if live <= peak || c.peakBytes.CompareAndSwap(peak, live) {
			break
		}
	}
	return b, nil
}

// Free accounts len(b) bytes; callers must pass the slice at its allocated
// length.
func (c *Counting) Free(b []byte) {
	n := len(b)
	c.inner.Free(b)
	c.frees.Add(1)
	c.liveBytes.Add(-int64(n))

	c.mu.RLock()
	fn := c.onFree
	c.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}

func (c *Counting) Seal(b []byte) error {
	return c.inner.Seal(b)
}

func (c *Counting) Stats() Stats {
	return Stats{
		Allocs:    c.allocs.Load(),
		Frees:     c.frees.Load(),
		LiveBytes: c.liveBytes.Load(),
		PeakBytes: c.peakBytes.Load(),
	}
}
