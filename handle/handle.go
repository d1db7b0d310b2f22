package handle

import "fmt"

// Handle is an opaque, generation-tagged reference to an object in a Table.
// Handle 0 is reserved and always invalid.
type Handle uint64

// Null is the null handle, used for nullable results.
const Null Handle = 0

// TypeID identifies the kind of object a handle designates.
type TypeID uint32

func makeHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index+1))
}

// IsNull reports whether h is the null handle.
func (h Handle) IsNull() bool { return h == Null }

// Index returns the arena slot index of h.
func (h Handle) Index() uint32 { return uint32(h) - 1 }

// Generation returns the slot generation h was issued for.
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

func (h Handle) String() string {
	if h == Null {
		return "null"
	}
	return fmt.Sprintf("#%d@%d", h.Index(), h.Generation())
}
