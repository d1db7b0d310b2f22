//go:build cgo

package memory

// #include <stdlib.h>
import "C"

import (
	"unsafe"

	"github.com/wippyai/objbridge/errors"
)

// Manual allocates from the C heap. Memory is invisible to the Go collector
// and must be released with Free.
type Manual struct{}

func NewManual() *Manual { return &Manual{} }

func (*Manual) Name() string { return "manual" }

func (*Manual) Alloc(n int) ([]byte, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return Empty(), nil
	}

	ptr := C.calloc(C.size_t(n), 1)
	if ptr == nil {
		return nil, errors.AllocationFailed(errors.PhaseAllocate, n, nil)
	}
	return unsafe.Slice((*byte)(ptr), n), nil
}

func (*Manual) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	C.free(unsafe.Pointer(unsafe.SliceData(b)))
}

// Seal is a no-op: malloc'd memory shares pages with other allocations.
func (*Manual) Seal([]byte) error { return nil }
