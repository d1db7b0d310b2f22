package abi

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/objbridge"
)

func (b *Bridge) registerPlatform(m *HostModule) {
	p := b.platform

	unary := func(fn func(objbridge.Handle) objbridge.Handle) api.GoModuleFunc {
		return func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(fn(objbridge.Handle(stack[0])))
		}
	}
	nullary := func(fn func() objbridge.Handle) api.GoModuleFunc {
		return func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(fn())
		}
	}

	m.Func("get_greeting", unary(p.GetGreeting), []api.ValueType{i64}, []api.ValueType{i64})
	m.Func("echo", unary(p.Echo), []api.ValueType{i64}, []api.ValueType{i64})
	m.Func("send_and_get_data", unary(p.SendAndGetData), []api.ValueType{i64}, []api.ValueType{i64})
	m.Func("get_file_thumbnail_base64", unary(p.GetFileThumbnailBase64), []api.ValueType{i64}, []api.ValueType{i64})

	m.Func("complex_data", nullary(p.ComplexData), nil, []api.ValueType{i64})
	m.Func("get_data", nullary(p.GetData), nil, []api.ValueType{i64})
	m.Func("get_int_array", nullary(p.IntArray), nil, []api.ValueType{i64})
	m.Func("get_custom_object", nullary(p.CustomObject), nil, []api.ValueType{i64})

	m.Func("get_mounts", func(ctx context.Context, _ api.Module, stack []uint64) {
		stack[0] = uint64(p.GetMounts(ctx))
	}, nil, []api.ValueType{i64})

	m.Func("return_nullable", func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = uint64(p.ReturnNullable(uint32(stack[0]) != 0))
	}, []api.ValueType{i32}, []api.ValueType{i64})
}
