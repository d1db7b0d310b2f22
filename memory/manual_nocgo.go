//go:build !cgo

package memory

// Manual falls back to pinned Go memory when cgo is disabled.
type Manual struct {
	*Heap
}

func NewManual() *Manual { return &Manual{Heap: NewHeap()} }

func (*Manual) Name() string { return "manual" }
