// Package errors provides structured error types for the object bridge.
//
// Errors are categorized by Phase (which bridge operation failed) and Kind
// (error category). The Error type carries the handle involved, a field path
// for composite objects, Go/bridge type names and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Handle(uint64(h)).
//		GoType("string").
//		BridgeType("data").
//		Detail("handle does not designate a string").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidUTF8(errors.PhaseDecode, nil, raw)
//	err := errors.AllocationFailed(errors.PhaseAllocate, 4096, cause)
//
// Contract violations (double release, use after release, double transfer)
// are never returned: they are raised as panics carrying an *Error with
// KindContractViolation when the handle table runs in debug mode.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
