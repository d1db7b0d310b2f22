//go:build !invariants

package handle

// Invariants reports whether the binary was built with -tags invariants.
const Invariants = false
