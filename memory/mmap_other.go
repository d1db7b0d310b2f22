//go:build !(linux || darwin || freebsd)

package memory

// Mmap falls back to pinned Go memory where anonymous mappings are not
// available.
type Mmap struct {
	*Heap
}

func NewMmap() *Mmap { return &Mmap{Heap: NewHeap()} }

func (*Mmap) Name() string { return "mmap" }
