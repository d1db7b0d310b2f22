package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which bridge operation produced the error
type Phase string

const (
	PhaseAllocate Phase = "allocate" // backing storage allocation
	PhaseEncode   Phase = "encode"   // Go value to bridge object
	PhaseDecode   Phase = "decode"   // bridge object to Go value
	PhaseRetain   Phase = "retain"   // refcount increment
	PhaseRelease  Phase = "release"  // refcount decrement / destruction
	PhaseTransfer Phase = "transfer" // ownership hand-off to the owner runtime
	PhaseLayout   Phase = "layout"   // composite schema layout
	PhaseHost     Phase = "host"     // host module / C ABI registration
	PhaseCall     Phase = "call"     // exported function invocation
)

// Kind categorizes the error
type Kind string

const (
	KindContractViolation Kind = "contract_violation"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindAllocation        Kind = "allocation"
	KindInvalidHandle     Kind = "invalid_handle"
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindFieldMissing      Kind = "field_missing"
	KindUnsupported       Kind = "unsupported"
	KindOverflow          Kind = "overflow"
	KindNilPointer        Kind = "nil_pointer"
	KindClosed            Kind = "closed"
	KindInvalidInput      Kind = "invalid_input"
	KindRegistration      Kind = "registration"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	BridgeType string
	Detail     string
	Path       []string
	Handle     uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Handle != 0 {
		fmt.Fprintf(&b, " (handle %#x)", e.Handle)
	}

	if e.GoType != "" || e.BridgeType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.BridgeType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", bridge type ")
			b.WriteString(e.BridgeType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("bridge type ")
			b.WriteString(e.BridgeType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.BridgeType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Handle sets the raw handle the error refers to
func (b *Builder) Handle(h uint64) *Builder {
	b.err.Handle = h
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// BridgeType sets the bridge object type name
func (b *Builder) BridgeType(t string) *Builder {
	b.err.BridgeType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, h uint64, goType, bridgeType string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindTypeMismatch,
		Handle:     h,
		GoType:     goType,
		BridgeType: bridgeType,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error. This is the DecodingError of
// the string codec and is always recoverable.
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size int, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Value:  size,
		Cause:  cause,
	}
}

// InvalidHandle creates an error for a null, stale or unknown handle
func InvalidHandle(phase Phase, h uint64) *Error {
	detail := "stale or unknown handle"
	if h == 0 {
		detail = "null handle"
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: h,
		Detail: detail,
	}
}

// ContractViolation creates the error value raised when a caller breaks the
// retain/release/transfer contract.
func ContractViolation(phase Phase, h uint64, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindContractViolation,
		Handle: h,
		Detail: detail,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("field %q not found", fieldName),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindOverflow,
		Path:       path,
		BridgeType: target,
		Detail:     fmt.Sprintf("value %v overflows %s", value, target),
		Value:      value,
	}
}

// Closed creates an error for operations on a closed table or runtime
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: what + " closed",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
