package object

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wippyai/objbridge/buffer"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/memory"
)

// Builder collects field values for one composite. Setter errors are
// deferred to Build.
type Builder struct {
	schema *Schema
	err    error
	values []uint64
}

func NewBuilder(s *Schema) *Builder {
	return &Builder{
		schema: s,
		values: make([]uint64, len(s.Fields)),
	}
}

func (b *Builder) set(name string, kind Kind, v uint64) (int, bool) {
	if b.err != nil {
		return 0, false
	}
	i, err := b.schema.lookup(errors.PhaseEncode, name, kind)
	if err != nil {
		b.err = err
		return 0, false
	}
	b.values[i] = v
	return i, true
}

func (b *Builder) Bool(name string, v bool) *Builder {
	var bits uint64
	if v {
		bits = 1
	}
	b.set(name, KindBool, bits)
	return b
}

// Int sets a signed field, failing if v does not fit its width.
func (b *Builder) Int(name string, v int64) *Builder {
	i, ok := b.set(name, KindInt, uint64(v))
	if !ok {
		return b
	}
	bits := b.schema.Layout.Fields[i].Size * 8
	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if v < lo || v > hi {
			b.err = errors.Overflow(errors.PhaseEncode, []string{b.schema.Name, name}, v, TypeString(b.schema.Fields[i].Type))
		}
	}
	return b
}

// Uint sets an unsigned field, failing if v does not fit its width.
func (b *Builder) Uint(name string, v uint64) *Builder {
	i, ok := b.set(name, KindUint, v)
	if !ok {
		return b
	}
	bits := b.schema.Layout.Fields[i].Size * 8
	if bits < 64 && v > uint64(1)<<bits-1 {
		b.err = errors.Overflow(errors.PhaseEncode, []string{b.schema.Name, name}, v, TypeString(b.schema.Fields[i].Type))
	}
	return b
}

func (b *Builder) Float(name string, v float64) *Builder {
	i, ok := b.set(name, KindFloat, math.Float64bits(v))
	if ok && b.schema.Layout.Fields[i].Size == 4 {
		b.values[i] = uint64(math.Float32bits(float32(v)))
	}
	return b
}

// Handle sets a handle field. The composite takes over the caller's
// reference once Build succeeds. handle.Null stores an absent value.
func (b *Builder) Handle(name string, h handle.Handle) *Builder {
	b.set(name, KindHandle, uint64(h))
	return b
}

// Set assigns field i from a Go value of the matching kind: bool, any
// integer type, float32/float64 or handle.Handle.
func (b *Builder) Set(i int, v any) *Builder {
	if b.err != nil {
		return b
	}
	if i < 0 || i >= len(b.schema.Fields) {
		b.err = errors.OutOfBounds(errors.PhaseEncode, []string{b.schema.Name}, i, len(b.schema.Fields))
		return b
	}

	name := b.schema.Fields[i].Name
	switch x := v.(type) {
	case bool:
		return b.Bool(name, x)
	case handle.Handle:
		return b.Handle(name, x)
	case int:
		return b.Int(name, int64(x))
	case int8:
		return b.Int(name, int64(x))
	case int16:
		return b.Int(name, int64(x))
	case int32:
		return b.Int(name, int64(x))
	case int64:
		return b.Int(name, x)
	case uint:
		return b.Uint(name, uint64(x))
	case uint8:
		return b.Uint(name, uint64(x))
	case uint16:
		return b.Uint(name, uint64(x))
	case uint32:
		return b.Uint(name, uint64(x))
	case uint64:
		return b.Uint(name, x)
	case float32:
		return b.Float(name, float64(x))
	case float64:
		return b.Float(name, x)
	default:
		b.err = errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			Path(b.schema.Name, name).
			GoType(fmt.Sprintf("%T", v)).
			BridgeType(TypeString(b.schema.Fields[i].Type)).
			Build()
		return b
	}
}

// EachHandle calls fn for every non-null handle field in field order until
// fn returns false.
func (b *Builder) EachHandle(fn func(name string, h handle.Handle) bool) {
	for i, info := range b.schema.Layout.Fields {
		if info.Kind != KindHandle || b.values[i] == 0 {
			continue
		}
		if !fn(b.schema.Fields[i].Name, handle.Handle(b.values[i])) {
			return
		}
	}
}

// Err returns the first setter error.
func (b *Builder) Err() error {
	return b.err
}

// Build writes the composite into sealed storage. On failure the caller
// still owns every handle it passed in.
func (b *Builder) Build(alloc memory.Allocator, rel handle.Releaser) (*Object, error) {
	if b.err != nil {
		return nil, b.err
	}
	if rel == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, []string{b.schema.Name}, "handle.Releaser")
	}

	l := b.schema.Layout
	buf, err := buffer.Build(alloc, int(l.Size), func(dst []byte) error {
		for i, info := range l.Fields {
			writeField(dst[l.Offsets[i]:], info.Size, b.values[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Object{schema: b.schema, buf: buf, rel: rel}, nil
}

func writeField(dst []byte, size uint32, v uint64) {
	switch size {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.NativeEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.NativeEndian.PutUint32(dst, uint32(v))
	case 8:
		binary.NativeEndian.PutUint64(dst, v)
	}
}

func readField(src []byte, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.NativeEndian.Uint16(src))
	case 4:
		return uint64(binary.NativeEndian.Uint32(src))
	case 8:
		return binary.NativeEndian.Uint64(src)
	}
	return 0
}
