package handle

// State is the ownership state of an object.
type State uint32

const (
	// StateLocal: owned by the runtime that created it.
	StateLocal State = iota
	// StateTransferred: the outstanding reference belongs to the foreign runtime.
	StateTransferred
	// StateReleased: terminal, the object has been destroyed.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateLocal:
		return "local"
	case StateTransferred:
		return "transferred"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}
