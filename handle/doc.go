// Package handle implements the handle layer of the object bridge.
//
// A Handle is an opaque 64-bit reference to a Go value that has been handed
// (or is about to be handed) to a foreign runtime with manual memory
// management: C code calling through the c-shared library or a WebAssembly
// guest calling the objbridge host module.
//
// # Encoding
//
// Handles are generation-tagged arena indices:
//
//	bits 63..32  generation of the slot
//	bits 31..0   slot index + 1
//
// Handle 0 is the null handle. Two handles designate the same object exactly
// when they are equal; raw addresses are never compared.
//
// # Reference Counting
//
// Every object is created with a reference count of 1 owned by its creator:
//
//	h, err := table.New(typeID, value)  // refs = 1, state Local
//	table.Retain(h)                     // refs = 2
//	table.Release(h)                    // refs = 1
//	table.Release(h)                    // refs = 0: value.Drop(), slot recycled
//
// Retain and Release are the only operations that mutate a reference count.
// They never return errors. Releasing a destroyed handle, releasing more than
// was retained, or transferring an object twice is a contract violation on
// the caller's side. With debug enabled (WithDebug or the invariants build
// tag) the table panics with an *errors.Error of KindContractViolation;
// otherwise the violation is logged and the table state is left untouched.
//
// # Transfer
//
// Transfer marks an object as handed to the foreign runtime. It does not
// change the reference count: the single outstanding reference now belongs
// to the foreign side, which must eventually call Release.
//
//	Local --Transfer--> Transferred --refs reach 0--> Released
//	Local --refs reach 0--------------------------> Released
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(observer) // OnHandleEvent(Event) for created, retained,
//	                          // released, transferred and destroyed events
//
// Build with -tags tracing to record a stack trace for every refcount change;
// Table.Trace returns them for a live handle.
package handle
