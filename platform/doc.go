// Package platform contains sample functions exported to the owner runtime.
//
// Each function borrows its handle arguments and returns a new object under
// the transfer convention, so the caller owns exactly one reference to the
// result. The abi package registers them as wasm host functions and
// cmd/libobjbridge exports them through the C ABI.
package platform
