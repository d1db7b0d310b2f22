package object

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/objbridge/buffer"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/handle"
)

// Value is one decoded field.
type Value struct {
	Kind Kind
	bits uint64
	size uint32
}

func (v Value) Bool() bool { return v.bits != 0 }

// Int sign-extends the stored value.
func (v Value) Int() int64 {
	shift := 64 - v.size*8
	return int64(v.bits<<shift) >> shift
}

func (v Value) Uint() uint64 { return v.bits }

func (v Value) Float() float64 {
	if v.size == 4 {
		return float64(math.Float32frombits(uint32(v.bits)))
	}
	return math.Float64frombits(v.bits)
}

func (v Value) Handle() handle.Handle { return handle.Handle(v.bits) }

// Interface returns the value as bool, int64, uint64, float64 or
// handle.Handle.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int()
	case KindUint:
		return v.Uint()
	case KindFloat:
		return v.Float()
	case KindHandle:
		return v.Handle()
	default:
		return nil
	}
}

// Object is an immutable composite in C layout.
type Object struct {
	schema  *Schema
	buf     *buffer.Buffer
	rel     handle.Releaser
	dropped atomic.Bool
}

func (o *Object) Schema() *Schema { return o.schema }

// Pointer returns the address of the C struct.
func (o *Object) Pointer() unsafe.Pointer { return o.buf.Pointer() }

// Size returns the byte size of the C struct.
func (o *Object) Size() int { return o.buf.Len() }

// Buffer returns the backing storage.
func (o *Object) Buffer() *buffer.Buffer { return o.buf }

// NumField returns the number of fields.
func (o *Object) NumField() int { return len(o.schema.Fields) }

// Field decodes field i.
func (o *Object) Field(i int) (Value, error) {
	if i < 0 || i >= len(o.schema.Fields) {
		return Value{}, errors.OutOfBounds(errors.PhaseDecode, []string{o.schema.Name}, i, len(o.schema.Fields))
	}
	return o.field(i), nil
}

func (o *Object) field(i int) Value {
	info := o.schema.Layout.Fields[i]
	off := o.schema.Layout.Offsets[i]
	return Value{
		Kind: info.Kind,
		bits: readField(o.buf.Bytes()[off:], info.Size),
		size: info.Size,
	}
}

func (o *Object) named(name string, kind Kind) (Value, error) {
	i, err := o.schema.lookup(errors.PhaseDecode, name, kind)
	if err != nil {
		return Value{}, err
	}
	return o.field(i), nil
}

func (o *Object) Bool(name string) (bool, error) {
	v, err := o.named(name, KindBool)
	return v.Bool(), err
}

func (o *Object) Int(name string) (int64, error) {
	v, err := o.named(name, KindInt)
	if err != nil {
		return 0, err
	}
	return v.Int(), nil
}

func (o *Object) Uint(name string) (uint64, error) {
	v, err := o.named(name, KindUint)
	return v.Uint(), err
}

func (o *Object) Float(name string) (float64, error) {
	v, err := o.named(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.Float(), nil
}

// Handle borrows the child handle stored in a handle field.
func (o *Object) Handle(name string) (handle.Handle, error) {
	v, err := o.named(name, KindHandle)
	return v.Handle(), err
}

// Handles returns every non-null child handle in field order.
func (o *Object) Handles() []handle.Handle {
	var out []handle.Handle
	for i, info := range o.schema.Layout.Fields {
		if info.Kind != KindHandle {
			continue
		}
		if h := o.field(i).Handle(); !h.IsNull() {
			out = append(out, h)
		}
	}
	return out
}

// Drop releases every child handle, then frees the struct.
func (o *Object) Drop() {
	if !o.dropped.CompareAndSwap(false, true) {
		return
	}
	defer o.buf.Drop()
	for _, h := range o.Handles() {
		o.rel.Release(h)
	}
}
