package codec

import (
	"math"
	"slices"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/wippyai/objbridge/buffer"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/memory"
)

// Scalar is a fixed-size element type that can be copied bytewise.
type Scalar interface {
	constraints.Integer | constraints.Float | ~bool
}

// Array is a contiguous, read-only run of scalars in bridge storage.
type Array[T Scalar] struct {
	buf *buffer.Buffer
	n   int
}

func elemSize[T Scalar]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// NewArray copies items into bridge storage.
func NewArray[T Scalar](alloc memory.Allocator, items []T) (*Array[T], error) {
	size := elemSize[T]()
	if len(items) > math.MaxInt/size {
		return nil, errors.Overflow(errors.PhaseEncode, nil, len(items), "array byte length")
	}

	var raw []byte
	if len(items) > 0 {
		raw = unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(items))), len(items)*size)
	}

	buf, err := buffer.New(alloc, raw)
	if err != nil {
		return nil, err
	}
	return &Array[T]{buf: buf, n: len(items)}, nil
}

// Len returns the element count.
func (a *Array[T]) Len() int { return a.n }

// Pointer returns the address of the first element.
func (a *Array[T]) Pointer() unsafe.Pointer { return a.buf.Pointer() }

// ByteLen returns the size of the backing block.
func (a *Array[T]) ByteLen() int { return a.buf.Len() }

// Buffer returns the backing buffer.
func (a *Array[T]) Buffer() *buffer.Buffer { return a.buf }

// Slice returns a read-only view of the elements without copying. It is valid
// until the array is dropped.
func (a *Array[T]) Slice() []T {
	if a.n == 0 {
		return []T{}
	}
	return unsafe.Slice((*T)(a.buf.Pointer()), a.n)
}

// Values copies the elements into a new Go slice.
func (a *Array[T]) Values() []T {
	return slices.Clone(a.Slice())
}

// Export returns Values as an untyped value.
func (a *Array[T]) Export() any {
	return a.Values()
}

// At returns element i.
func (a *Array[T]) At(i int) (T, error) {
	if i < 0 || i >= a.n {
		var zero T
		return zero, errors.OutOfBounds(errors.PhaseDecode, nil, i, a.n)
	}
	return a.Slice()[i], nil
}

func (a *Array[T]) Drop() {
	a.buf.Drop()
}
