// Package objbridge shares immutable objects between a Go runtime and a
// foreign owner runtime through reference-counted handles.
//
// The Go side (the managed runtime) creates strings, byte buffers, scalar
// arrays, arrays of objects and composite records. Their storage lives
// outside the Go heap, or is pinned, so the owner runtime can read it
// through a stable pointer. The owner runtime only ever sees opaque 64-bit
// handles and releases them when done.
//
// # Architecture Overview
//
//	objbridge/          Runtime facade: constructors, accessors, transfer, pools
//	├── handle/         Generation-tagged handle table with atomic refcounts
//	├── memory/         Fixed-address allocators (mmap, C heap, pinned Go heap)
//	├── buffer/         Immutable byte blocks
//	├── codec/          Strings, data, scalar arrays, object arrays
//	├── object/         Composite records in C layout described by WIT types
//	├── abi/            wazero host module exposing the bridge to wasm guests
//	├── platform/       Sample collaborator functions built on the bridge
//	├── errors/         Structured error types
//	└── cmd/
//	    ├── bridgectl/      Demo, stress and interactive inspector CLI
//	    └── libobjbridge/   C shared library exports
//
// # Ownership
//
// Every object starts with one reference in state Local. An exported
// function hands its result to the owner runtime with Transfer, which
// changes the state to Transferred without touching the count; the owner
// then holds that reference and must release it. Handles passed into a call
// are borrowed for the call's duration.
//
// Retain and Release never return errors. Misuse, such as releasing a
// destroyed object, is a contract violation: with Config.Debug (or the
// invariants build tag) it panics, otherwise it is logged and ignored.
//
// # Quick Start
//
//	rt, err := objbridge.New(objbridge.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	h, err := rt.NewString("Hello Brendan!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	return rt.Transfer(h) // owner now holds the reference
//
// # Build Tags
//
//	invariants  contract violations panic by default
//	tracing     record a stack trace for every refcount change
//	cgo         enables the C heap allocator and cmd/libobjbridge
package objbridge
