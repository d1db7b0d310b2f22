package objbridge

import (
	"go.uber.org/zap"

	"github.com/wippyai/objbridge/memory"
)

// Config holds configuration for runtime creation.
// The zero value is usable.
type Config struct {
	// Allocator backs every object's storage.
	// nil means memory.Default().
	Allocator memory.Allocator

	// Logger receives contract violations and leak reports.
	// nil means the package Logger().
	Logger *zap.Logger

	// MemoryLimit caps live object storage in bytes. 0 means no limit.
	MemoryLimit int64

	// InitialSlots preallocates handle table capacity.
	InitialSlots int

	// Debug makes contract violations panic instead of being logged.
	// Also enabled by building with -tags invariants.
	Debug bool
}
