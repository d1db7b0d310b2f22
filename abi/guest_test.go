package abi

// Minimal wasm binary assembly for guest modules used in tests.

const (
	secType     = 0x01
	secImport   = 0x02
	secFunction = 0x03
	secMemory   = 0x05
	secExport   = 0x07
	secCode     = 0x0a
	secData     = 0x0b
)

const (
	valI32 = 0x7f
	valI64 = 0x7e
)

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// sleb encodes a signed 32-bit value for i32.const.
func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint32(len(payload)))...)
	return append(out, payload...)
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb(uint32(len(results)))...)
	return append(out, results...)
}

func importFunc(module, field string, typeIdx uint32) []byte {
	out := append(name(module), name(field)...)
	out = append(out, 0x00)
	return append(out, uleb(typeIdx)...)
}

func export(field string, kind byte, idx uint32) []byte {
	out := append(name(field), kind)
	return append(out, uleb(idx)...)
}

// body wraps instructions with one i64 local and the end opcode.
func body(code ...byte) []byte {
	fn := []byte{0x01, 0x01, valI64}
	fn = append(fn, code...)
	fn = append(fn, 0x0b)
	return append(uleb(uint32(len(fn))), fn...)
}

func call(idx uint32) []byte { return append([]byte{0x10}, uleb(idx)...) }
func i32Const(v int32) []byte { return append([]byte{0x41}, sleb(v)...) }
func localGet(idx uint32) []byte { return append([]byte{0x20}, uleb(idx)...) }
func localSet(idx uint32) []byte { return append([]byte{0x21}, uleb(idx)...) }
func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// memoryOnlyModule exports one page of memory and nothing else.
var memoryOnlyModule = []byte("\x00asm\x01\x00\x00\x00\x05\x03\x01\x00\x01\x07\x0a\x01\x06memory\x02\x00")

const (
	guestNameOffset = 16
	guestOutOffset  = 64
	guestOutCap     = 64
)

// greeterModule imports a subset of the bridge and exports:
//
//	greet() -> i64       allocate "Brendan", call get_greeting, release the name
//	greet_read() -> i32  greet, copy the result to offset 64, release it
//	leak() -> i64        allocate "Brendan" and return it
func greeterModule() []byte {
	const (
		tRelease = iota
		tAlloc
		tRead
		tUnary
		tGreet
		tGreetRead
	)
	types := vec(
		funcType([]byte{valI64}, nil),
		funcType([]byte{valI32, valI32}, []byte{valI64}),
		funcType([]byte{valI64, valI32, valI32}, []byte{valI32}),
		funcType([]byte{valI64}, []byte{valI64}),
		funcType(nil, []byte{valI64}),
		funcType(nil, []byte{valI32}),
	)

	const (
		fRelease = iota
		fAlloc
		fRead
		fGreeting
		fGreet
		fGreetRead
		fLeak
	)
	imports := vec(
		importFunc(ModuleName, "release_object", tRelease),
		importFunc(ModuleName, "allocate_string", tAlloc),
		importFunc(ModuleName, "object_read", tRead),
		importFunc(ModuleName, "get_greeting", tUnary),
	)

	funcs := vec(uleb(tGreet), uleb(tGreetRead), uleb(tGreet))
	memory := vec([]byte{0x00, 0x01})
	exports := vec(
		export("memory", 0x02, 0),
		export("greet", 0x00, fGreet),
		export("greet_read", 0x00, fGreetRead),
		export("leak", 0x00, fLeak),
	)

	greet := body(concat(
		i32Const(guestNameOffset), i32Const(7), call(fAlloc), localSet(0),
		localGet(0), call(fGreeting),
		localGet(0), call(fRelease),
	)...)
	greetRead := body(concat(
		call(fGreet), localSet(0),
		localGet(0), i32Const(guestOutOffset), i32Const(guestOutCap), call(fRead),
		localGet(0), call(fRelease),
	)...)
	leak := body(concat(
		i32Const(guestNameOffset), i32Const(7), call(fAlloc),
	)...)
	code := concat(uleb(3), greet, greetRead, leak)

	data := vec(concat(
		[]byte{0x00}, i32Const(guestNameOffset), []byte{0x0b},
		name("Brendan"),
	))

	return concat(
		wasmHeader,
		section(secType, types),
		section(secImport, imports),
		section(secFunction, funcs),
		section(secMemory, memory),
		section(secExport, exports),
		section(secCode, code),
		section(secData, data),
	)
}
