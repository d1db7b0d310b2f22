package memory

import (
	"bytes"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/wippyai/objbridge/errors"
)

func allocators() []Allocator {
	return []Allocator{NewHeap(), NewManual(), NewMmap()}
}

func TestEmpty(t *testing.T) {
	b := Empty()
	if len(b) != 0 || cap(b) != 0 {
		t.Fatalf("Empty() len=%d cap=%d", len(b), cap(b))
	}
	if Pointer(b) == 0 {
		t.Fatal("Empty() has a nil data pointer")
	}
	if !IsEmpty(b) {
		t.Fatal("IsEmpty(Empty()) = false")
	}
	if IsEmpty(make([]byte, 0)) {
		t.Fatal("IsEmpty matched a foreign slice")
	}
}

func TestAllocators(t *testing.T) {
	sizes := []int{0, 1, 7, 4096, 4097, 1 << 16}

	for _, a := range allocators() {
		t.Run(a.Name(), func(t *testing.T) {
			for _, n := range sizes {
				b, err := a.Alloc(n)
				if err != nil {
					t.Fatalf("Alloc(%d) failed: %v", n, err)
				}
				if len(b) != n {
					t.Fatalf("Alloc(%d) len = %d", n, len(b))
				}
				if Pointer(b) == 0 {
					t.Fatalf("Alloc(%d) returned nil pointer", n)
				}
				for i, c := range b {
					if c != 0 {
						t.Fatalf("Alloc(%d)[%d] = %d, want zeroed", n, i, c)
					}
				}
				for i := range b {
					b[i] = byte(i)
				}
				if err := a.Seal(b); err != nil {
					t.Fatalf("Seal failed: %v", err)
				}
				if n > 0 && b[n-1] != byte(n-1) {
					t.Fatal("content lost after Seal")
				}
				a.Free(b)
			}
		})
	}
}

func TestAllocNegative(t *testing.T) {
	for _, a := range allocators() {
		_, err := a.Alloc(-1)
		if !errors.Is(err, &errors.Error{Phase: errors.PhaseAllocate, Kind: errors.KindInvalidInput}) {
			t.Errorf("%s: Alloc(-1) = %v", a.Name(), err)
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "default", "manual", "mmap", "heap"} {
		a, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) failed: %v", name, err)
		}
		if a == nil {
			t.Fatalf("ByName(%q) returned nil", name)
		}
	}
	if _, err := ByName("tmpfs"); err == nil {
		t.Fatal("ByName accepted an unknown allocator")
	}
}

func TestHeapUnpinsOnFree(t *testing.T) {
	h := NewHeap()
	b, _ := h.Alloc(32)
	if len(h.pins) != 1 {
		t.Fatalf("pins = %d, want 1", len(h.pins))
	}
	h.Free(b)
	if len(h.pins) != 0 {
		t.Fatalf("pins = %d after Free, want 0", len(h.pins))
	}
}

func TestCounting(t *testing.T) {
	c := NewCounting(NewHeap())
	var freed int
	c.OnFree(func(n int) { freed += n })

	a, _ := c.Alloc(100)
	b, _ := c.Alloc(50)

	s := c.Stats()
	if s.Allocs != 2 || s.LiveBytes != 150 || s.PeakBytes != 150 {
		t.Fatalf("stats = %+v", s)
	}

	c.Free(a)
	c.Free(b)
	s = c.Stats()
	if s.Live() != 0 || s.LiveBytes != 0 || s.PeakBytes != 150 {
		t.Fatalf("stats after free = %+v", s)
	}
	if freed != 150 {
		t.Fatalf("OnFree saw %d bytes, want 150", freed)
	}
}

func TestCountingLimit(t *testing.T) {
	c := NewCounting(NewHeap())
	c.SetLimit(64)

	b, err := c.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc within limit failed: %v", err)
	}
	if _, err := c.Alloc(1); !errors.Is(err, &errors.Error{Phase: errors.PhaseAllocate, Kind: errors.KindAllocation}) {
		t.Fatalf("Alloc over limit = %v", err)
	}
	c.Free(b)
	if _, err := c.Alloc(1); err != nil {
		t.Fatalf("Alloc after free failed: %v", err)
	}
}

func TestCountingLimitConcurrent(t *testing.T) {
	const limit = 64 * 10
	c := NewCounting(NewHeap())
	c.SetLimit(limit)

	var (
		wg   sync.WaitGroup
		ok   atomic.Int32
		mu   sync.Mutex
		held [][]byte
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Alloc(64)
			if err != nil {
				return
			}
			ok.Add(1)
			mu.Lock()
			held = append(held, b)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if n := ok.Load(); n != 10 {
		t.Fatalf("%d allocations succeeded, want 10", n)
	}
	if s := c.Stats(); s.LiveBytes != limit || s.PeakBytes > limit {
		t.Fatalf("stats = %+v, limit %d", s, limit)
	}
	for _, b := range held {
		c.Free(b)
	}
	if s := c.Stats(); s.LiveBytes != 0 {
		t.Fatalf("stats after free = %+v", s)
	}
}

func TestForeign(t *testing.T) {
	src := []byte("foreign bytes")
	p := unsafe.Pointer(unsafe.SliceData(src))

	b, err := Foreign(p, uint64(len(src)))
	if err != nil {
		t.Fatalf("Foreign failed: %v", err)
	}
	if !bytes.Equal(b, src) || unsafe.Pointer(unsafe.SliceData(b)) != p {
		t.Fatalf("Foreign = %q, want an alias of %q", b, src)
	}

	if b, err := Foreign(nil, 0); err != nil || len(b) != 0 {
		t.Fatalf("Foreign(nil, 0) = %v, %v", b, err)
	}
	if _, err := Foreign(nil, 3); !errors.Is(err, &errors.Error{Phase: errors.PhaseAllocate, Kind: errors.KindNilPointer}) {
		t.Fatalf("Foreign(nil, 3) = %v", err)
	}

	tests := []uint64{
		math.MaxInt32 + 1,
		1<<32 + 5,
		math.MaxUint64,
	}
	for _, n := range tests {
		if _, err := Foreign(p, n); !errors.Is(err, &errors.Error{Phase: errors.PhaseAllocate, Kind: errors.KindAllocation}) {
			t.Errorf("Foreign(%d) = %v, want allocation failure", n, err)
		}
	}
}

func TestCountingConcurrent(t *testing.T) {
	c := NewCounting(NewMmap())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				b, err := c.Alloc(i + 1)
				if err != nil {
					t.Errorf("Alloc failed: %v", err)
					return
				}
				c.Free(b)
			}
		}()
	}
	wg.Wait()

	s := c.Stats()
	if s.Allocs != 1600 || s.Frees != 1600 || s.LiveBytes != 0 {
		t.Fatalf("stats = %+v", s)
	}
}
