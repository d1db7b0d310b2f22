// Package abi exposes a bridge runtime to WebAssembly guests as a wazero
// host module named "objbridge".
//
// All values crossing the boundary are i32/i64 primitives. Object handles
// are i64; 0 is the null handle. Every function that creates an object
// returns it under the transfer convention: the guest owns one reference
// and must call release_object exactly once.
//
// # Core functions
//
//	retain_object(h i64)
//	release_object(h i64)
//	allocate_string(ptr i32, len i32) -> i64    copy UTF-8 from guest memory
//	data_from_bytes(ptr i32, len i32) -> i64    copy bytes from guest memory
//	object_len(h i64) -> i32                    -1 if h is not live
//	object_read(h i64, dst i32, cap i32) -> i32 copy up to cap bytes, return full size
//	array_get(h i64, idx i32) -> i64            borrowed element of an object array
//	object_field(h i64, idx i32) -> i64         field bits, or a borrowed child handle
//	is_null(h i64) -> i32
//
// Sample functions from the platform package are registered into the same
// module; see Bridge.HostModule.
//
// Invalid arguments never trap: they are logged and answered with the null
// handle or -1. Contract violations follow the runtime's debug setting and
// surface as a trap in debug mode.
package abi
