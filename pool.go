package objbridge

import "sync"

// Pool collects references to release together, like an autorelease pool.
type Pool struct {
	rt      *Runtime
	handles []Handle
	mu      sync.Mutex
}

// NewPool creates an empty pool bound to rt.
func (rt *Runtime) NewPool() *Pool {
	return &Pool{rt: rt}
}

// Add hands one reference to h over to the pool and returns h.
func (p *Pool) Add(h Handle) Handle {
	if h.IsNull() {
		return h
	}
	p.mu.Lock()
	p.handles = append(p.handles, h)
	p.mu.Unlock()
	return h
}

// Len returns the number of pending references.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Drain releases every collected reference, newest first.
func (p *Pool) Drain() {
	p.mu.Lock()
	handles := p.handles
	p.handles = nil
	p.mu.Unlock()

	for i := len(handles) - 1; i >= 0; i-- {
		p.rt.Release(handles[i])
	}
}

// WithPool runs fn with a fresh pool and drains it afterwards, even if fn
// panics.
func (rt *Runtime) WithPool(fn func(p *Pool) error) error {
	p := rt.NewPool()
	defer p.Drain()
	return fn(p)
}
