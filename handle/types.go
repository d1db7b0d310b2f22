package handle

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventTransferred
	EventDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventTransferred:
		return "transferred"
	case EventDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event represents an object lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID TypeID
	Refs   int32
	Type   EventType
}

// Observer receives notifications about lifecycle events.
// Observers run synchronously on the goroutine that caused the event and
// must not call back into the table.
type Observer interface {
	OnHandleEvent(Event)
}

// Dropper is optionally implemented by values that own storage or child
// references. Drop runs exactly once, when the reference count reaches zero.
type Dropper interface {
	Drop()
}

// Releaser is the release half of the handle contract. Values that hold
// strong references to other handles release them through it.
type Releaser interface {
	Release(Handle)
}
