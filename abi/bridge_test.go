package abi

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/handle"
)

func newBridge(t *testing.T) *Bridge {
	t.Helper()
	rt, err := objbridge.New(objbridge.Config{Debug: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return New(rt)
}

func newWazero(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { r.Close(ctx) })
	return ctx, r
}

func memoryModule(t *testing.T) api.Memory {
	t.Helper()
	ctx, r := newWazero(t)
	mod, err := r.Instantiate(ctx, memoryOnlyModule)
	if err != nil {
		t.Fatalf("instantiate memory module: %v", err)
	}
	return mod.Memory()
}

func assertNoLeaks(t *testing.T, rt *objbridge.Runtime) {
	t.Helper()
	if leaks := rt.Leaks(); len(leaks) != 0 {
		t.Fatalf("leaked %d objects: %+v", len(leaks), leaks)
	}
	if st := rt.Stats().Memory; st.Live() != 0 {
		t.Fatalf("leaked storage: %+v", st)
	}
}

func TestHostModuleFuncs(t *testing.T) {
	b := newBridge(t)

	var names []string
	for _, f := range b.HostModule().Funcs() {
		names = append(names, f.Name)
	}

	want := []string{
		"retain_object", "release_object", "allocate_string", "data_from_bytes",
		"object_len", "object_read", "array_get", "object_field", "is_null",
		"get_greeting", "echo", "send_and_get_data", "get_file_thumbnail_base64",
		"complex_data", "get_data", "get_int_array", "get_custom_object",
		"get_mounts", "return_nullable",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("functions mismatch (-want +got):\n%s", diff)
	}
}

func TestHostModuleReplace(t *testing.T) {
	m := NewHostModule("test")
	noop := func(context.Context, api.Module, []uint64) {}
	m.Func("f", noop, nil, nil).Func("g", noop, nil, nil).Func("f", noop, []api.ValueType{i32}, nil)

	funcs := m.Funcs()
	if len(funcs) != 2 {
		t.Fatalf("got %d funcs, want 2", len(funcs))
	}
	if funcs[0].Name != "f" || len(funcs[0].ParamTypes) != 1 {
		t.Fatalf("f not replaced in place: %+v", funcs[0])
	}
	if m.Name() != "test" {
		t.Fatalf("Name() = %q", m.Name())
	}
}

func TestDefine(t *testing.T) {
	b := newBridge(t)
	noop := func(context.Context, api.Module, []uint64) {}

	err := b.Define("retain_object", noop, []api.ValueType{i64}, nil)
	if err == nil {
		t.Fatal("expected error for reserved name")
	}
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindRegistration {
		t.Fatalf("error = %v, want registration error", err)
	}

	if err := b.Define("answer", noop, nil, []api.ValueType{i32}); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	funcs := b.HostModule().Funcs()
	if last := funcs[len(funcs)-1]; last.Name != "answer" {
		t.Fatalf("last function = %q, want answer", last.Name)
	}
}

func TestInstantiateTwice(t *testing.T) {
	b := newBridge(t)
	ctx, r := newWazero(t)

	if _, err := b.Instantiate(ctx, r); err != nil {
		t.Fatalf("first Instantiate failed: %v", err)
	}
	if _, err := b.Instantiate(ctx, r); err == nil {
		t.Fatal("expected error on second Instantiate")
	}
}

func TestAllocateString(t *testing.T) {
	b := newBridge(t)
	rt := b.Runtime()
	mem := memoryModule(t)

	mem.Write(100, []byte("Brendan"))
	h := b.AllocateString(mem, 100, 7)
	if h == 0 {
		t.Fatal("AllocateString returned null")
	}
	if got := rt.State(objbridge.Handle(h)); got != handle.StateTransferred {
		t.Fatalf("state = %s, want transferred", got)
	}
	if n := b.ObjectLen(h); n != 7 {
		t.Fatalf("ObjectLen = %d, want 7", n)
	}

	if n := b.ObjectRead(mem, h, 200, 64); n != 7 {
		t.Fatalf("ObjectRead = %d, want 7", n)
	}
	got, _ := mem.Read(200, 7)
	if string(got) != "Brendan" {
		t.Fatalf("read back %q", got)
	}

	b.ReleaseObject(h)
	assertNoLeaks(t, rt)
}

func TestAllocateStringEmpty(t *testing.T) {
	b := newBridge(t)
	mem := memoryModule(t)

	h := b.AllocateString(mem, 0, 0)
	if h == 0 {
		t.Fatal("empty string returned null")
	}
	if n := b.ObjectLen(h); n != 0 {
		t.Fatalf("ObjectLen = %d, want 0", n)
	}
	b.ReleaseObject(h)
	assertNoLeaks(t, b.Runtime())
}

func TestAllocateStringRejects(t *testing.T) {
	b := newBridge(t)
	mem := memoryModule(t)
	mem.Write(0, []byte{0xff, 0xfe})

	tests := []struct {
		mem  api.Memory
		name string
		ptr  uint32
		n    uint32
	}{
		{name: "invalid utf8", mem: mem, ptr: 0, n: 2},
		{name: "out of bounds", mem: mem, ptr: 65530, n: 100},
		{name: "no memory", mem: nil, ptr: 0, n: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h := b.AllocateString(tt.mem, tt.ptr, tt.n); h != 0 {
				t.Fatalf("got handle %#x, want null", h)
			}
		})
	}
	assertNoLeaks(t, b.Runtime())
}

func TestDataFromBytes(t *testing.T) {
	b := newBridge(t)
	rt := b.Runtime()
	mem := memoryModule(t)

	mem.Write(0, []byte("hello"))
	h := b.DataFromBytes(mem, 0, 5)
	got, err := rt.Data(objbridge.Handle(h))
	if err != nil || string(got) != "hello" {
		t.Fatalf("Data = %q, %v", got, err)
	}

	b.RetainObject(h)
	if n := rt.RefCount(objbridge.Handle(h)); n != 2 {
		t.Fatalf("refcount = %d, want 2", n)
	}
	b.ReleaseObject(h)
	b.ReleaseObject(h)
	assertNoLeaks(t, rt)
}

func TestObjectReadTruncates(t *testing.T) {
	b := newBridge(t)
	mem := memoryModule(t)

	h, _ := b.Runtime().NewString("Hello Brendan!")
	if n := b.ObjectRead(mem, uint64(h), 0, 5); n != 14 {
		t.Fatalf("ObjectRead = %d, want full size 14", n)
	}
	got, _ := mem.Read(0, 6)
	if string(got) != "Hello\x00" {
		t.Fatalf("memory = %q, want truncated copy", got)
	}

	if n := b.ObjectRead(mem, uint64(h), 65535, 14); n != -1 {
		t.Fatalf("ObjectRead past memory end = %d, want -1", n)
	}
	if n := b.ObjectRead(mem, 0, 0, 14); n != -1 {
		t.Fatalf("ObjectRead of null = %d, want -1", n)
	}

	b.Runtime().Release(h)
	assertNoLeaks(t, b.Runtime())
}

func TestComplexDataAccessors(t *testing.T) {
	b := newBridge(t)
	rt := b.Runtime()

	arr := b.platform.ComplexData()
	if n := b.ObjectLen(uint64(arr)); n != 1 {
		t.Fatalf("array len = %d, want 1", n)
	}

	elem := b.ArrayGet(uint64(arr), 0)
	if elem == 0 {
		t.Fatal("ArrayGet returned null")
	}
	if n := b.ObjectLen(elem); n != 3 {
		t.Fatalf("field count = %d, want 3", n)
	}

	a := b.ObjectField(elem, 0)
	s, err := rt.StringValue(objbridge.Handle(a))
	if err != nil || s != "Brendan" {
		t.Fatalf("field a = %q, %v", s, err)
	}
	if v := b.ObjectField(elem, 1); v != 0 {
		t.Fatalf("field b = %d, want 0", v)
	}
	if v := b.ObjectField(elem, 2); v != 1 {
		t.Fatalf("field c = %d, want 1", v)
	}

	if v := b.ArrayGet(uint64(arr), 1); v != 0 {
		t.Fatalf("ArrayGet out of range = %#x, want null", v)
	}
	if v := b.ObjectField(elem, 3); v != 0 {
		t.Fatalf("ObjectField out of range = %#x, want null", v)
	}

	b.ReleaseObject(uint64(arr))
	assertNoLeaks(t, rt)
}

func TestObjectFieldNumbers(t *testing.T) {
	b := newBridge(t)

	h := b.platform.ReturnNullable(false)
	if v := b.ObjectField(uint64(h), 0); v != 0 {
		t.Fatalf("null field = %d, want 0", v)
	}
	if v := b.ObjectField(uint64(h), 1); v != 20309 {
		t.Fatalf("num field = %d, want 20309", v)
	}
	b.ReleaseObject(uint64(h))

	if h := b.platform.ReturnNullable(true); h != objbridge.Null {
		t.Fatalf("ReturnNullable(true) = %s, want null", h)
	}
	if b.IsNull(0) != 1 || b.IsNull(uint64(math.MaxUint32)) != 0 {
		t.Fatal("IsNull mismatch")
	}
	assertNoLeaks(t, b.Runtime())
}

func instantiateGuest(t *testing.T, b *Bridge) (context.Context, api.Module) {
	t.Helper()
	ctx, r := newWazero(t)
	if _, err := b.Instantiate(ctx, r); err != nil {
		t.Fatalf("Instantiate bridge: %v", err)
	}
	guest, err := r.Instantiate(ctx, greeterModule())
	if err != nil {
		t.Fatalf("Instantiate guest: %v", err)
	}
	return ctx, guest
}

func TestGuestGreeting(t *testing.T) {
	b := newBridge(t)
	ctx, guest := instantiateGuest(t, b)

	for range 1000 {
		res, err := guest.ExportedFunction("greet_read").Call(ctx)
		if err != nil {
			t.Fatalf("greet_read: %v", err)
		}
		if n := int32(res[0]); n != 14 {
			t.Fatalf("greet_read = %d, want 14", n)
		}
	}

	got, ok := guest.Memory().Read(guestOutOffset, 14)
	if !ok || string(got) != "Hello Brendan!" {
		t.Fatalf("guest memory = %q", got)
	}
	assertNoLeaks(t, b.Runtime())
}

func TestGuestOwnsResult(t *testing.T) {
	b := newBridge(t)
	rt := b.Runtime()
	ctx, guest := instantiateGuest(t, b)

	res, err := guest.ExportedFunction("greet").Call(ctx)
	if err != nil {
		t.Fatalf("greet: %v", err)
	}
	h := objbridge.Handle(res[0])
	if rt.State(h) != handle.StateTransferred || rt.RefCount(h) != 1 {
		t.Fatalf("result state %s refs %d, want transferred/1", rt.State(h), rt.RefCount(h))
	}
	if s, _ := rt.StringValue(h); s != "Hello Brendan!" {
		t.Fatalf("greeting = %q", s)
	}

	res, err = guest.ExportedFunction("leak").Call(ctx)
	if err != nil {
		t.Fatalf("leak: %v", err)
	}
	if leaks := rt.Leaks(); len(leaks) != 2 {
		t.Fatalf("live objects = %d, want 2", len(leaks))
	}

	b.ReleaseObject(uint64(h))
	b.ReleaseObject(res[0])
	assertNoLeaks(t, rt)
}

func TestGuestLen(t *testing.T) {
	tests := []struct {
		n    int
		want int32
		ok   bool
	}{
		{0, 0, true},
		{14, 14, true},
		{math.MaxInt32, math.MaxInt32, true},
		{math.MaxInt32 + 1, -1, false},
		{1<<32 + 5, -1, false},
		{-1, -1, false},
	}
	for _, tt := range tests {
		got, err := guestLen(tt.n)
		if got != tt.want {
			t.Errorf("guestLen(%d) = %d, want %d", tt.n, got, tt.want)
		}
		if tt.ok != (err == nil) {
			t.Errorf("guestLen(%d) error = %v", tt.n, err)
		}
		if err != nil && !errors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindOverflow}) {
			t.Errorf("guestLen(%d) error kind = %v", tt.n, err)
		}
	}
}
