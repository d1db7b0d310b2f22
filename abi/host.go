package abi

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/objbridge/errors"
)

// Value type shorthands for function signatures.
var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// FuncDef is one host function definition.
type FuncDef struct {
	Handler     api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// HostModule collects host functions and instantiates them as one wazero
// module.
type HostModule struct {
	index map[string]int
	name  string
	funcs []FuncDef
}

// NewHostModule starts building a host module with the given import name.
func NewHostModule(name string) *HostModule {
	return &HostModule{name: name, index: make(map[string]int)}
}

// Name returns the module's import name.
func (b *HostModule) Name() string { return b.name }

// Func adds a function. A later definition with the same name replaces the
// earlier one.
func (b *HostModule) Func(name string, fn api.GoModuleFunc, params, results []api.ValueType) *HostModule {
	def := FuncDef{Name: name, Handler: fn, ParamTypes: params, ResultTypes: results}
	if i, ok := b.index[name]; ok {
		b.funcs[i] = def
		return b
	}
	b.index[name] = len(b.funcs)
	b.funcs = append(b.funcs, def)
	return b
}

// Funcs returns the registered definitions in registration order.
func (b *HostModule) Funcs() []FuncDef {
	return b.funcs
}

// Instantiate builds the module into r.
func (b *HostModule) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	if r.Module(b.name) != nil {
		return nil, errors.New(errors.PhaseHost, errors.KindRegistration).
			Detail("module %q already instantiated", b.name).
			Build()
	}

	builder := r.NewHostModuleBuilder(b.name)
	for _, f := range b.funcs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.Handler, f.ParamTypes, f.ResultTypes).
			WithName(f.Name).
			Export(f.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindRegistration, err, "instantiate "+b.name)
	}
	return mod, nil
}
