// Package buffer implements immutable, fixed-address byte blocks shared with
// a foreign runtime.
//
// A Buffer is written once during construction, then sealed. Its base
// pointer and length never change until Drop, which the handle layer calls
// when the owning object's reference count reaches zero.
package buffer

import (
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/memory"
)

// Buffer owns one allocation from a memory.Allocator.
type Buffer struct {
	alloc   memory.Allocator
	data    []byte
	dropped atomic.Bool
}

// New copies src into an exact-size allocation. A zero-length src yields an
// empty buffer with a non-nil pointer.
func New(alloc memory.Allocator, src []byte) (*Buffer, error) {
	return Build(alloc, len(src), func(dst []byte) error {
		copy(dst, src)
		return nil
	})
}

// Build allocates n bytes, lets fill initialise them, then seals the block.
// Nothing is retained if fill or sealing fails.
func Build(alloc memory.Allocator, n int, fill func([]byte) error) (*Buffer, error) {
	if alloc == nil {
		return nil, errors.NilPointer(errors.PhaseAllocate, nil, "memory.Allocator")
	}

	data, err := alloc.Alloc(n)
	if err != nil {
		return nil, err
	}

	if fill != nil && n > 0 {
		if err := fill(data); err != nil {
			alloc.Free(data)
			return nil, err
		}
	}

	if err := alloc.Seal(data); err != nil {
		alloc.Free(data)
		return nil, err
	}

	return &Buffer{alloc: alloc, data: data}, nil
}

// Pointer returns the base address of the block.
func (b *Buffer) Pointer() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(b.data))
}

// Len returns the number of bytes in the block.
func (b *Buffer) Len() int {
	return len(b.data)
}

// View returns the base pointer and length, as handed across the ABI.
func (b *Buffer) View() (unsafe.Pointer, int) {
	return b.Pointer(), len(b.data)
}

// Bytes aliases the block. The caller must not write to it or keep it past
// the owning object's lifetime.
func (b *Buffer) Bytes() []byte {
	return b.data[:len(b.data):len(b.data)]
}

// Borrow returns a non-owning view of n bytes starting at off.
func (b *Buffer) Borrow(off, n int) (View, error) {
	if off < 0 || n < 0 || off > len(b.data) || n > len(b.data)-off {
		return View{}, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			Detail("range [%d:%d] outside buffer of %d bytes", off, off+n, len(b.data)).
			Build()
	}
	return View{data: b.data[off : off+n : off+n]}, nil
}

// Dropped reports whether the storage has been released.
func (b *Buffer) Dropped() bool {
	return b.dropped.Load()
}

// Drop releases the storage. Only the first call has any effect.
func (b *Buffer) Drop() {
	if !b.dropped.CompareAndSwap(false, true) {
		return
	}
	data := b.data
	b.data = nil
	b.alloc.Free(data)
}

// View is a borrowed range of a Buffer. It does not keep the buffer alive.
type View struct {
	data []byte
}

func (v View) Pointer() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(v.data))
}

func (v View) Len() int {
	return len(v.data)
}

func (v View) Bytes() []byte {
	return v.data
}
