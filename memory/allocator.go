package memory

import (
	"math"
	"unsafe"

	"github.com/wippyai/objbridge/errors"
)

// Allocator hands out fixed-address byte slices.
type Allocator interface {
	// Alloc returns n zeroed bytes. n == 0 returns Empty().
	Alloc(n int) ([]byte, error)
	// Free returns b to the allocator. b must come from Alloc on the same
	// allocator and may be re-sliced to length 0.
	Free(b []byte)
	// Seal makes b read-only where the allocator supports it.
	Seal(b []byte) error
	Name() string
}

// empty backs every zero-length allocation so its data pointer is non-nil.
var empty [1]byte

// Empty returns a zero-length slice with a valid, non-nil data pointer.
func Empty() []byte {
	return empty[:0:0]
}

// IsEmpty reports whether b is the shared empty block.
func IsEmpty(b []byte) bool {
	return cap(b) == 0 && unsafe.SliceData(b) == &empty[0]
}

// Pointer returns the address of b's first byte.
func Pointer(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// ByName returns a new allocator by its configuration name.
func ByName(name string) (Allocator, error) {
	switch name {
	case "", "default":
		return Default(), nil
	case "manual":
		return NewManual(), nil
	case "mmap":
		return NewMmap(), nil
	case "heap":
		return NewHeap(), nil
	default:
		return nil, errors.New(errors.PhaseAllocate, errors.KindInvalidInput).
			Detail("unknown allocator %q", name).
			Build()
	}
}

// Default returns the C heap allocator, or pinned Go memory in builds
// without cgo. Mmap spends a page per object and is opt-in.
func Default() Allocator {
	return NewManual()
}

func checkSize(n int) error {
	if n < 0 {
		return errors.New(errors.PhaseAllocate, errors.KindInvalidInput).
			Detail("negative size %d", n).
			Build()
	}
	return nil
}

// MaxForeignLen bounds the length of a region accepted from foreign code.
const MaxForeignLen = math.MaxInt32

// Foreign returns a non-owning view of n bytes at p, memory owned by the
// caller on the other side of the bridge. The view is only valid for the
// duration of the call that received p.
func Foreign(p unsafe.Pointer, n uint64) ([]byte, error) {
	if n > MaxForeignLen {
		size := math.MaxInt
		if n < math.MaxInt {
			size = int(n)
		}
		cause := errors.New(errors.PhaseAllocate, errors.KindOverflow).
			Detail("foreign length %d exceeds %d", n, MaxForeignLen).
			Build()
		return nil, errors.AllocationFailed(errors.PhaseAllocate, size, cause)
	}
	if n == 0 {
		return Empty(), nil
	}
	if p == nil {
		return nil, errors.NilPointer(errors.PhaseAllocate, nil, "foreign region")
	}
	return unsafe.Slice((*byte)(p), int(n)), nil
}
