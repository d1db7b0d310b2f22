package objbridge

import (
	"fmt"

	"github.com/wippyai/objbridge/codec"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/object"
)

func (rt *Runtime) typed(h Handle, typeID handle.TypeID) (any, error) {
	actual, ok := rt.table.TypeID(h)
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseDecode, uint64(h))
	}
	if actual != typeID {
		return nil, errors.TypeMismatch(errors.PhaseDecode, uint64(h), TypeName(typeID), TypeName(actual))
	}
	v, ok := rt.table.Get(h)
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseDecode, uint64(h))
	}
	return v, nil
}

// TypeOf returns the type identifier of h.
func (rt *Runtime) TypeOf(h Handle) (handle.TypeID, bool) {
	return rt.table.TypeID(h)
}

// String borrows the string object h.
func (rt *Runtime) String(h Handle) (*codec.String, error) {
	v, err := rt.typed(h, TypeString)
	if err != nil {
		return nil, err
	}
	return v.(*codec.String), nil
}

// StringValue copies the string object h into a Go string.
func (rt *Runtime) StringValue(h Handle) (string, error) {
	s, err := rt.String(h)
	if err != nil {
		return "", err
	}
	return codec.DecodeString(s)
}

// Data borrows the bytes of a data or string object. The slice must not be
// written to or used after h is released.
func (rt *Runtime) Data(h Handle) ([]byte, error) {
	v, ok := rt.table.Get(h)
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseDecode, uint64(h))
	}
	switch o := v.(type) {
	case *codec.Data:
		return o.Bytes(), nil
	case *codec.String:
		return o.Bytes(), nil
	default:
		id, _ := rt.table.TypeID(h)
		return nil, errors.TypeMismatch(errors.PhaseDecode, uint64(h), "data", TypeName(id))
	}
}

// ArrayOf borrows the scalar array h with element type T.
func ArrayOf[T codec.Scalar](rt *Runtime, h Handle) (*codec.Array[T], error) {
	v, err := rt.typed(h, TypeArray)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(*codec.Array[T])
	if !ok {
		var zero T
		return nil, errors.TypeMismatch(errors.PhaseDecode, uint64(h), fmt.Sprintf("array<%T>", zero), fmt.Sprintf("%T", v))
	}
	return arr, nil
}

// ObjectArray borrows the object array h.
func (rt *Runtime) ObjectArray(h Handle) (*codec.ObjectArray, error) {
	v, err := rt.typed(h, TypeObjectArray)
	if err != nil {
		return nil, err
	}
	return v.(*codec.ObjectArray), nil
}

// Object borrows the composite object h.
func (rt *Runtime) Object(h Handle) (*object.Object, error) {
	v, err := rt.typed(h, TypeObject)
	if err != nil {
		return nil, err
	}
	return v.(*object.Object), nil
}

// Borrow runs fn with the value of h kept alive for the call's duration.
func (rt *Runtime) Borrow(h Handle, fn func(v any) error) error {
	if !rt.table.Valid(h) {
		return errors.InvalidHandle(errors.PhaseDecode, uint64(h))
	}
	rt.table.Retain(h)
	defer rt.table.Release(h)

	v, ok := rt.table.Get(h)
	if !ok {
		return errors.InvalidHandle(errors.PhaseDecode, uint64(h))
	}
	return fn(v)
}
