// Package memory provides the backing storage for bridge buffers.
//
// Buffers handed to a foreign runtime must keep a stable address for their
// whole lifetime, so every allocator here returns memory the Go collector
// will not move:
//
//   - Manual allocates from the C heap (cgo builds only).
//   - Mmap maps anonymous pages and can seal them read-only.
//   - Heap allocates Go memory and pins it with runtime.Pinner.
//
// Counting wraps any allocator to track live bytes, which the leak checks
// and memory-pressure tests rely on.
package memory
