package objbridge

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/objbridge/codec"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/memory"
	"github.com/wippyai/objbridge/object"
)

// Handle is re-exported for callers that only use the facade.
type Handle = handle.Handle

// Null is the absent object.
const Null = handle.Null

// Object type identifiers stored in the handle table.
const (
	TypeString handle.TypeID = iota + 1
	TypeData
	TypeArray
	TypeObjectArray
	TypeObject
)

// TypeName returns a display name for a type identifier.
func TypeName(id handle.TypeID) string {
	switch id {
	case TypeString:
		return "string"
	case TypeData:
		return "data"
	case TypeArray:
		return "array"
	case TypeObjectArray:
		return "object-array"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("type(%d)", id)
	}
}

// Runtime owns a handle table and the allocator behind every object it
// creates.
type Runtime struct {
	table  *handle.Table
	alloc  *memory.Counting
	logger *zap.Logger
	debug  bool
}

// New creates a runtime.
func New(cfg Config) (*Runtime, error) {
	inner := cfg.Allocator
	if inner == nil {
		inner = memory.Default()
	}
	if cfg.MemoryLimit < 0 {
		return nil, errors.InvalidInput(errors.PhaseAllocate, "negative memory limit")
	}

	l := cfg.Logger
	if l == nil {
		l = Logger()
	}

	alloc := memory.NewCounting(inner)
	alloc.SetLimit(cfg.MemoryLimit)

	debug := cfg.Debug || handle.Invariants
	table := handle.NewTable(
		handle.WithDebug(debug),
		handle.WithLogger(l),
		handle.WithCapacity(cfg.InitialSlots),
	)

	l.Debug("bridge runtime created",
		zap.String("allocator", inner.Name()),
		zap.Bool("debug", debug),
		zap.Int64("memory_limit", cfg.MemoryLimit),
	)

	return &Runtime{
		table:  table,
		alloc:  alloc,
		logger: l,
		debug:  debug,
	}, nil
}

// Table returns the underlying handle table.
func (rt *Runtime) Table() *handle.Table { return rt.table }

// Allocator returns the runtime's accounting allocator.
func (rt *Runtime) Allocator() memory.Allocator { return rt.alloc }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *zap.Logger { return rt.logger }

// Debug reports whether contract violations panic.
func (rt *Runtime) Debug() bool { return rt.debug }

type dropper interface {
	Drop()
}

// register stores v in the table. v is dropped if registration fails.
func (rt *Runtime) register(typeID handle.TypeID, v dropper) (Handle, error) {
	h, err := rt.table.New(typeID, v)
	if err != nil {
		v.Drop()
		return Null, err
	}
	return h, nil
}

// NewString copies s into a string object.
func (rt *Runtime) NewString(s string) (Handle, error) {
	str, err := codec.EncodeString(rt.alloc, s)
	if err != nil {
		return Null, err
	}
	return rt.register(TypeString, str)
}

// NewStringFromBytes copies UTF-8 bytes into a string object.
func (rt *Runtime) NewStringFromBytes(b []byte) (Handle, error) {
	str, err := codec.EncodeBytes(rt.alloc, b)
	if err != nil {
		return Null, err
	}
	return rt.register(TypeString, str)
}

// NewData copies b into a data object.
func (rt *Runtime) NewData(b []byte) (Handle, error) {
	d, err := codec.EncodeData(rt.alloc, b)
	if err != nil {
		return Null, err
	}
	return rt.register(TypeData, d)
}

// NewArray copies items into a scalar array object.
func NewArray[T codec.Scalar](rt *Runtime, items []T) (Handle, error) {
	arr, err := codec.NewArray(rt.alloc, items)
	if err != nil {
		return Null, err
	}
	return rt.register(TypeArray, arr)
}

// NewObjectArray builds an array of objects. It takes over one reference
// per element on success; on failure the caller still owns them.
func (rt *Runtime) NewObjectArray(items []Handle) (Handle, error) {
	for i, h := range items {
		if !h.IsNull() && !rt.table.Valid(h) {
			return Null, errors.New(errors.PhaseEncode, errors.KindInvalidHandle).
				Path(fmt.Sprintf("[%d]", i)).
				Handle(uint64(h)).
				Build()
		}
	}

	arr, err := codec.NewObjectArray(rt.table, rt.alloc, items)
	if err != nil {
		return Null, err
	}

	h, err := rt.table.New(TypeObjectArray, arr)
	if err != nil {
		arr.Array().Drop()
		return Null, err
	}
	return h, nil
}

// NewObject finishes b as a composite object. Handle fields take over the
// caller's references on success.
func (rt *Runtime) NewObject(b *object.Builder) (Handle, error) {
	if err := b.Err(); err != nil {
		return Null, err
	}
	var invalid error
	b.EachHandle(func(name string, h handle.Handle) bool {
		if rt.table.Valid(h) {
			return true
		}
		invalid = errors.New(errors.PhaseEncode, errors.KindInvalidHandle).
			Path(name).
			Handle(uint64(h)).
			Build()
		return false
	})
	if invalid != nil {
		return Null, invalid
	}

	obj, err := b.Build(rt.alloc, rt.table)
	if err != nil {
		return Null, err
	}

	h, err := rt.table.New(TypeObject, obj)
	if err != nil {
		obj.Buffer().Drop()
		return Null, err
	}
	return h, nil
}

// Retain adds a reference to h.
func (rt *Runtime) Retain(h Handle) {
	rt.table.Retain(h)
}

// Release drops a reference held by this runtime. Releasing the owner's
// reference of a transferred object is a contract violation.
func (rt *Runtime) Release(h Handle) {
	rt.table.ReleaseLocal(h)
}

// ReleaseForeign drops a reference on behalf of the owner runtime.
func (rt *Runtime) ReleaseForeign(h Handle) {
	rt.table.Release(h)
}

// RefCount returns the reference count of h, 0 if h is not live.
func (rt *Runtime) RefCount(h Handle) int32 {
	return rt.table.RefCount(h)
}

// State returns the ownership state of h.
func (rt *Runtime) State(h Handle) handle.State {
	return rt.table.State(h)
}

// Valid reports whether h designates a live object.
func (rt *Runtime) Valid(h Handle) bool {
	return rt.table.Valid(h)
}

// Pointer returns the base address and byte length of h's storage.
func (rt *Runtime) Pointer(h Handle) (unsafe.Pointer, int, error) {
	v, ok := rt.table.Get(h)
	if !ok {
		return nil, 0, errors.InvalidHandle(errors.PhaseDecode, uint64(h))
	}
	switch o := v.(type) {
	case *codec.String:
		p, n := o.View()
		return p, n, nil
	case *codec.Data:
		p, n := o.View()
		return p, n, nil
	case *codec.ObjectArray:
		return o.Array().Pointer(), o.Array().ByteLen(), nil
	case *object.Object:
		return o.Pointer(), o.Size(), nil
	case interface {
		Pointer() unsafe.Pointer
		ByteLen() int
	}:
		return o.Pointer(), o.ByteLen(), nil
	default:
		return nil, 0, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("pointer of %T", v))
	}
}

// Len returns the element count of h: bytes for strings and data, elements
// for arrays, fields for objects.
func (rt *Runtime) Len(h Handle) (int, error) {
	v, ok := rt.table.Get(h)
	if !ok {
		return 0, errors.InvalidHandle(errors.PhaseDecode, uint64(h))
	}
	switch o := v.(type) {
	case *codec.String:
		return o.Len(), nil
	case *codec.Data:
		return o.Len(), nil
	case *codec.ObjectArray:
		return o.Len(), nil
	case *object.Object:
		return o.NumField(), nil
	case interface{ Len() int }:
		return o.Len(), nil
	default:
		return 0, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("length of %T", v))
	}
}

// Close destroys every remaining object and reports leaks.
func (rt *Runtime) Close() error {
	leaks := rt.Leaks()
	for _, l := range leaks {
		rt.logger.Warn("leaked bridge object",
			zap.Stringer("handle", l.Handle),
			zap.String("type", l.Type),
			zap.Int32("refs", l.Refs),
			zap.Stringer("state", l.State),
		)
	}

	if err := rt.table.Close(); err != nil {
		return err
	}

	if st := rt.alloc.Stats(); st.LiveBytes != 0 {
		rt.logger.Error("bridge storage not freed on close",
			zap.Int64("live_bytes", st.LiveBytes),
			zap.Int64("live_allocs", st.Live()),
		)
	}
	return nil
}
