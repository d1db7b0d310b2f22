package abi

import (
	"context"
	"math"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/object"
	"github.com/wippyai/objbridge/platform"
)

// ModuleName is the import module name guests use.
const ModuleName = "objbridge"

// Bridge binds a runtime to wasm guests.
type Bridge struct {
	rt       *objbridge.Runtime
	platform *platform.Platform
	logger   *zap.Logger
	extra    []FuncDef
}

// New creates a bridge over rt.
func New(rt *objbridge.Runtime) *Bridge {
	return &Bridge{
		rt:       rt,
		platform: platform.New(rt),
		logger:   Logger().With(zap.String("module", ModuleName)),
	}
}

// Runtime returns the bridged runtime.
func (b *Bridge) Runtime() *objbridge.Runtime { return b.rt }

// Define adds a custom host function to the module. Names of built-in
// functions are reserved.
func (b *Bridge) Define(name string, fn api.GoModuleFunc, params, results []api.ValueType) error {
	for _, f := range b.builtins().Funcs() {
		if f.Name == name {
			return errors.Registration(errors.PhaseHost, ModuleName, name,
				errors.InvalidInput(errors.PhaseHost, "name is reserved"))
		}
	}
	b.extra = append(b.extra, FuncDef{Name: name, Handler: fn, ParamTypes: params, ResultTypes: results})
	return nil
}

// HostModule returns the full function set: core functions, platform
// samples and custom definitions.
func (b *Bridge) HostModule() *HostModule {
	m := b.builtins()
	for _, f := range b.extra {
		m.Func(f.Name, f.Handler, f.ParamTypes, f.ResultTypes)
	}
	return m
}

// Instantiate registers the host module in r. Guests importing from
// "objbridge" must be instantiated afterwards.
func (b *Bridge) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	return b.HostModule().Instantiate(ctx, r)
}

func (b *Bridge) builtins() *HostModule {
	m := NewHostModule(ModuleName)

	m.Func("retain_object", func(_ context.Context, _ api.Module, stack []uint64) {
		b.RetainObject(stack[0])
	}, []api.ValueType{i64}, nil)

	m.Func("release_object", func(_ context.Context, _ api.Module, stack []uint64) {
		b.ReleaseObject(stack[0])
	}, []api.ValueType{i64}, nil)

	m.Func("allocate_string", func(_ context.Context, mod api.Module, stack []uint64) {
		stack[0] = b.AllocateString(mod.Memory(), uint32(stack[0]), uint32(stack[1]))
	}, []api.ValueType{i32, i32}, []api.ValueType{i64})

	m.Func("data_from_bytes", func(_ context.Context, mod api.Module, stack []uint64) {
		stack[0] = b.DataFromBytes(mod.Memory(), uint32(stack[0]), uint32(stack[1]))
	}, []api.ValueType{i32, i32}, []api.ValueType{i64})

	m.Func("object_len", func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = uint64(uint32(b.ObjectLen(stack[0])))
	}, []api.ValueType{i64}, []api.ValueType{i32})

	m.Func("object_read", func(_ context.Context, mod api.Module, stack []uint64) {
		stack[0] = uint64(uint32(b.ObjectRead(mod.Memory(), stack[0], uint32(stack[1]), uint32(stack[2]))))
	}, []api.ValueType{i64, i32, i32}, []api.ValueType{i32})

	m.Func("array_get", func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = b.ArrayGet(stack[0], uint32(stack[1]))
	}, []api.ValueType{i64, i32}, []api.ValueType{i64})

	m.Func("object_field", func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = b.ObjectField(stack[0], uint32(stack[1]))
	}, []api.ValueType{i64, i32}, []api.ValueType{i64})

	m.Func("is_null", func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = uint64(b.IsNull(stack[0]))
	}, []api.ValueType{i64}, []api.ValueType{i32})

	b.registerPlatform(m)
	return m
}

// RetainObject adds a guest-owned reference.
func (b *Bridge) RetainObject(h uint64) {
	b.rt.Retain(objbridge.Handle(h))
}

// ReleaseObject drops a guest-owned reference.
func (b *Bridge) ReleaseObject(h uint64) {
	b.rt.ReleaseForeign(objbridge.Handle(h))
}

func (b *Bridge) read(mem api.Memory, ptr, n uint32) ([]byte, bool) {
	if mem == nil {
		b.logger.Error("guest has no exported memory")
		return nil, false
	}
	if n == 0 {
		return nil, true
	}
	data, ok := mem.Read(ptr, n)
	if !ok {
		b.logger.Error("guest memory range out of bounds",
			zap.Uint32("ptr", ptr),
			zap.Uint32("len", n),
			zap.Uint32("memory_size", mem.Size()),
		)
	}
	return data, ok
}

// AllocateString copies len bytes of UTF-8 at ptr into a new string object.
func (b *Bridge) AllocateString(mem api.Memory, ptr, n uint32) uint64 {
	data, ok := b.read(mem, ptr, n)
	if !ok {
		return 0
	}
	return uint64(b.rt.Return(b.rt.NewStringFromBytes(data)))
}

// DataFromBytes copies len bytes at ptr into a new data object.
func (b *Bridge) DataFromBytes(mem api.Memory, ptr, n uint32) uint64 {
	data, ok := b.read(mem, ptr, n)
	if !ok {
		return 0
	}
	return uint64(b.rt.Return(b.rt.NewData(data)))
}

// ObjectLen returns the element count of h, or -1.
func (b *Bridge) ObjectLen(h uint64) int32 {
	n, err := b.rt.Len(objbridge.Handle(h))
	if err != nil {
		b.logger.Debug("object_len failed", zap.Error(err))
		return -1
	}
	l, err := guestLen(n)
	if err != nil {
		b.logger.Error("object_len failed", zap.Uint64("handle", h), zap.Error(err))
		return -1
	}
	return l
}

// guestLen narrows a host length to the guest's i32 result.
func guestLen(n int) (int32, error) {
	if n < 0 || n > math.MaxInt32 {
		return -1, errors.Overflow(errors.PhaseCall, nil, n, "i32")
	}
	return int32(n), nil
}

// ObjectRead copies the raw bytes of h into guest memory at dst, at most
// capacity bytes, and returns the object's full byte size or -1.
func (b *Bridge) ObjectRead(mem api.Memory, h uint64, dst, capacity uint32) int32 {
	var size int32
	err := b.rt.Borrow(objbridge.Handle(h), func(any) error {
		p, n, err := b.rt.Pointer(objbridge.Handle(h))
		if err != nil {
			return err
		}
		if size, err = guestLen(n); err != nil {
			return err
		}
		if mem == nil {
			return errors.NilPointer(errors.PhaseCall, nil, "api.Memory")
		}
		if k := min(uint32(size), capacity); k > 0 {
			if !mem.Write(dst, unsafe.Slice((*byte)(p), k)) {
				return errors.OutOfBounds(errors.PhaseCall, []string{"dst"}, int(dst), int(mem.Size()))
			}
		}
		return nil
	})
	if err != nil {
		b.logger.Error("object_read failed", zap.Uint64("handle", h), zap.Error(err))
		return -1
	}
	return size
}

// ArrayGet borrows element idx of an object array. The guest must retain
// it to keep it past the array's lifetime.
func (b *Bridge) ArrayGet(h uint64, idx uint32) uint64 {
	arr, err := b.rt.ObjectArray(objbridge.Handle(h))
	if err != nil {
		b.logger.Error("array_get failed", zap.Uint64("handle", h), zap.Error(err))
		return 0
	}
	elem, err := arr.At(int(idx))
	if err != nil {
		b.logger.Error("array_get failed", zap.Uint64("handle", h), zap.Error(err))
		return 0
	}
	return uint64(elem)
}

// ObjectField returns field idx of a composite: the sign- or zero-extended
// value of integer and bool fields, the IEEE bits of float fields (f32
// widened to f64), or a borrowed child handle.
func (b *Bridge) ObjectField(h uint64, idx uint32) uint64 {
	obj, err := b.rt.Object(objbridge.Handle(h))
	if err != nil {
		b.logger.Error("object_field failed", zap.Uint64("handle", h), zap.Error(err))
		return 0
	}
	v, err := obj.Field(int(idx))
	if err != nil {
		b.logger.Error("object_field failed", zap.Uint64("handle", h), zap.Error(err))
		return 0
	}

	switch v.Kind {
	case object.KindInt:
		return uint64(v.Int())
	case object.KindFloat:
		return math.Float64bits(v.Float())
	case object.KindHandle:
		return uint64(v.Handle())
	default:
		return v.Uint()
	}
}

// IsNull returns 1 for the null handle.
func (b *Bridge) IsNull(h uint64) uint32 {
	if objbridge.Handle(h).IsNull() {
		return 1
	}
	return 0
}
