package memory

import (
	"runtime"
	"sync"
	"unsafe"
)

// Heap allocates Go memory pinned in place until Free.
type Heap struct {
	pins map[unsafe.Pointer]*runtime.Pinner
	mu   sync.Mutex
}

func NewHeap() *Heap {
	return &Heap{pins: make(map[unsafe.Pointer]*runtime.Pinner)}
}

func (h *Heap) Name() string { return "heap" }

func (h *Heap) Alloc(n int) ([]byte, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return Empty(), nil
	}

	b := make([]byte, n)
	p := unsafe.Pointer(&b[0])
	pin := new(runtime.Pinner)
	pin.Pin(p)

	h.mu.Lock()
	h.pins[p] = pin
	h.mu.Unlock()
	return b, nil
}

func (h *Heap) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	p := unsafe.Pointer(unsafe.SliceData(b))

	h.mu.Lock()
	pin, ok := h.pins[p]
	delete(h.pins, p)
	h.mu.Unlock()

	if ok {
		pin.Unpin()
	}
}

// Seal is a no-op: Go heap pages cannot be protected individually.
func (h *Heap) Seal([]byte) error { return nil }
