package codec

import (
	"sync/atomic"

	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/memory"
)

// ObjectArray is an array of handles. It owns one reference to every
// non-null element and releases them when dropped.
type ObjectArray struct {
	arr     *Array[handle.Handle]
	rel     handle.Releaser
	dropped atomic.Bool
}

// NewObjectArray takes over one reference per element. If it fails the
// caller still owns them.
func NewObjectArray(rel handle.Releaser, alloc memory.Allocator, items []handle.Handle) (*ObjectArray, error) {
	arr, err := NewArray(alloc, items)
	if err != nil {
		return nil, err
	}
	return &ObjectArray{arr: arr, rel: rel}, nil
}

func (a *ObjectArray) Len() int { return a.arr.Len() }

// Handles returns the elements without copying and without retaining them.
func (a *ObjectArray) Handles() []handle.Handle { return a.arr.Slice() }

// At borrows element i.
func (a *ObjectArray) At(i int) (handle.Handle, error) { return a.arr.At(i) }

// Array returns the handle storage as handed across the ABI.
func (a *ObjectArray) Array() *Array[handle.Handle] { return a.arr }

// Drop releases every element, then frees the handle storage.
func (a *ObjectArray) Drop() {
	if !a.dropped.CompareAndSwap(false, true) {
		return
	}
	for _, h := range a.arr.Slice() {
		if !h.IsNull() {
			a.rel.Release(h)
		}
	}
	a.arr.Drop()
}
