package handle

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/wippyai/objbridge/errors"
)

// maxSlots bounds the arena; the index must fit the low 32 bits of a handle
// with room for the +1 offset.
const maxSlots int64 = math.MaxUint32 - 1

type slot struct {
	value  any
	refs   refcnt
	state  atomic.Uint32
	gen    uint32
	typeID TypeID
}

// retire marks s released and advances its generation, skipping 0 so no
// handle ever encodes as Null.
func (s *slot) retire() {
	s.state.Store(uint32(StateReleased))
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
}

// Table is a generation-tagged arena of reference-counted objects.
// Slots are held by pointer so refcount atomics never move while the arena
// grows. The mutex guards the arena structure only; reference counts are
// updated atomically outside it.
type Table struct {
	logger    *zap.Logger
	live      *roaring.Bitmap
	slots     []*slot
	freeList  []uint32
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    atomic.Bool
	debug     bool
}

// Option configures a Table.
type Option func(*Table)

// WithDebug turns contract violations into panics.
func WithDebug(on bool) Option {
	return func(t *Table) { t.debug = on }
}

// WithLogger sets the logger used to report contract violations and leaks.
func WithLogger(l *zap.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithCapacity preallocates room for n slots.
func WithCapacity(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.slots = make([]*slot, 0, n)
		}
	}
}

// NewTable creates an empty handle table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		logger:   Logger(),
		live:     roaring.New(),
		slots:    make([]*slot, 0, 64),
		freeList: make([]uint32, 0, 16),
		debug:    Invariants,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Debug reports whether contract violations panic.
func (t *Table) Debug() bool {
	return t.debug
}

// New stores value with a reference count of 1 in state Local.
func (t *Table) New(typeID TypeID, value any) (Handle, error) {
	t.mu.Lock()
	if t.closed.Load() {
		t.mu.Unlock()
		return Null, errors.Closed(errors.PhaseAllocate, "handle table")
	}

	var (
		idx uint32
		s   *slot
	)
	if n := len(t.freeList); n > 0 {
		idx = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		s = t.slots[idx]
	} else {
		if int64(len(t.slots)) >= maxSlots {
			t.mu.Unlock()
			return Null, errors.Overflow(errors.PhaseAllocate, nil, len(t.slots), "handle table")
		}
		idx = uint32(len(t.slots))
		s = &slot{gen: 1}
		t.slots = append(t.slots, s)
	}

	s.value = value
	s.typeID = typeID
	s.refs.init(1)
	s.state.Store(uint32(StateLocal))
	h := makeHandle(idx, s.gen)
	t.live.Add(idx)
	t.mu.Unlock()

	t.notify(Event{
		Type:   EventCreated,
		Handle: h,
		TypeID: typeID,
		Value:  value,
		Refs:   1,
	})

	return h, nil
}

// lookup resolves h to its slot. The returned reason is empty on success.
func (t *Table) lookup(h Handle) (*slot, string) {
	if h == Null {
		return nil, "null handle"
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := h.Index()
	if int(idx) >= len(t.slots) {
		return nil, "unknown handle"
	}
	s := t.slots[idx]
	if s.gen != h.Generation() || State(s.state.Load()) == StateReleased {
		return nil, "handle used after release"
	}
	return s, ""
}

// Get returns the value h designates without changing its reference count.
func (t *Table) Get(h Handle) (any, bool) {
	s, reason := t.lookup(h)
	if reason != "" {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s.gen != h.Generation() {
		return nil, false
	}
	return s.value, true
}

// GetTyped returns the value only if it was created with typeID.
func (t *Table) GetTyped(h Handle, typeID TypeID) (any, bool) {
	actual, ok := t.TypeID(h)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.Get(h)
}

// TypeID returns the type the object was created with.
func (t *Table) TypeID(h Handle) (TypeID, bool) {
	s, reason := t.lookup(h)
	if reason != "" {
		return 0, false
	}
	return s.typeID, true
}

// RefCount returns the current reference count, or 0 for invalid handles.
func (t *Table) RefCount(h Handle) int32 {
	s, reason := t.lookup(h)
	if reason != "" {
		return 0
	}
	return s.refs.refs()
}

// State returns the ownership state of h. Invalid handles report
// StateReleased.
func (t *Table) State(h Handle) State {
	s, reason := t.lookup(h)
	if reason != "" {
		return StateReleased
	}
	return State(s.state.Load())
}

// Valid reports whether h designates a live object.
func (t *Table) Valid(h Handle) bool {
	_, reason := t.lookup(h)
	return reason == ""
}

// Retain increments the reference count of h.
func (t *Table) Retain(h Handle) {
	if t.closed.Load() {
		return
	}
	s, reason := t.lookup(h)
	if reason != "" {
		t.violation(errors.PhaseRetain, h, "retain: %s", reason)
		return
	}

	n := s.refs.acquire()
	if n <= 1 {
		s.refs.release()
		t.violation(errors.PhaseRetain, h, "retain of object with refcount %d", n-1)
		return
	}

	t.notify(Event{Type: EventRetained, Handle: h, TypeID: s.typeID, Refs: n})
}

// Release decrements the reference count of h. When it reaches zero the
// value's Drop runs and the slot is recycled under a new generation.
func (t *Table) Release(h Handle) {
	if t.closed.Load() {
		return
	}
	s, reason := t.lookup(h)
	if reason != "" {
		t.violation(errors.PhaseRelease, h, "release: %s", reason)
		return
	}

	n := s.refs.release()
	if n < 0 {
		s.refs.undo()
		t.violation(errors.PhaseRelease, h, "refcount underflow")
		return
	}

	t.notify(Event{Type: EventReleased, Handle: h, TypeID: s.typeID, Refs: n})

	if n == 0 {
		t.destroy(h, s)
	}
}

// ReleaseLocal is Release for the runtime that created h. Once h has been
// transferred, its last reference belongs to the foreign owner; dropping it
// from the creating side without a prior Retain is a contract violation.
func (t *Table) ReleaseLocal(h Handle) {
	if t.closed.Load() {
		return
	}
	s, reason := t.lookup(h)
	if reason != "" {
		t.violation(errors.PhaseRelease, h, "release: %s", reason)
		return
	}
	if State(s.state.Load()) == StateTransferred && s.refs.refs() <= 1 {
		t.violation(errors.PhaseRelease, h, "local release of transferred object without retain")
		return
	}
	t.Release(h)
}

// Transfer moves h from Local to Transferred without changing its reference
// count and returns it for the foreign caller.
func (t *Table) Transfer(h Handle) Handle {
	s, reason := t.lookup(h)
	if reason != "" {
		t.violation(errors.PhaseTransfer, h, "transfer: %s", reason)
		return h
	}

	if !s.state.CompareAndSwap(uint32(StateLocal), uint32(StateTransferred)) {
		t.violation(errors.PhaseTransfer, h, "object already %s", State(s.state.Load()))
		return h
	}

	t.notify(Event{Type: EventTransferred, Handle: h, TypeID: s.typeID, Refs: s.refs.refs()})
	return h
}

func (t *Table) destroy(h Handle, s *slot) {
	t.mu.Lock()
	if s.gen != h.Generation() {
		t.mu.Unlock()
		return
	}
	value, typeID := s.value, s.typeID
	s.value = nil
	s.retire()
	t.freeList = append(t.freeList, h.Index())
	t.live.Remove(h.Index())
	t.mu.Unlock()

	// Drop outside the lock: composite values release their children
	// through this same table.
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{Type: EventDestroyed, Handle: h, TypeID: typeID, Value: value})
}

// Trace returns the recorded refcount history of h. It is empty unless the
// binary was built with -tags tracing.
func (t *Table) Trace(h Handle) string {
	s, reason := t.lookup(h)
	if reason != "" {
		return ""
	}
	return s.refs.traces()
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int(t.live.GetCardinality())
}

// Live returns the handles of all live objects in slot order.
func (t *Table) Live() []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Handle, 0, t.live.GetCardinality())
	it := t.live.Iterator()
	for it.HasNext() {
		idx := it.Next()
		out = append(out, makeHandle(idx, t.slots[idx].gen))
	}
	return out
}

// Each iterates over all live objects until fn returns false.
func (t *Table) Each(fn func(Handle, TypeID, any) bool) {
	type item struct {
		value  any
		h      Handle
		typeID TypeID
	}

	t.mu.RLock()
	items := make([]item, 0, t.live.GetCardinality())
	it := t.live.Iterator()
	for it.HasNext() {
		idx := it.Next()
		s := t.slots[idx]
		items = append(items, item{h: makeHandle(idx, s.gen), typeID: s.typeID, value: s.value})
	}
	t.mu.RUnlock()

	for _, i := range items {
		if !fn(i.h, i.typeID, i.value) {
			break
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = slices.Delete(slices.Clone(t.observers), i, i+1)
			return
		}
	}
}

// Close drops every live object regardless of its reference count and stops
// accepting new objects. Retain and Release become no-ops afterwards.
func (t *Table) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	var values []any
	it := t.live.Iterator()
	for it.HasNext() {
		s := t.slots[it.Next()]
		values = append(values, s.value)
		s.value = nil
		s.retire()
	}
	leaked := len(values)
	t.live.Clear()
	t.slots = nil
	t.freeList = nil
	t.mu.Unlock()

	if leaked > 0 {
		t.logger.Warn("closing handle table with live objects", zap.Int("live", leaked))
	}

	for _, v := range values {
		if d, ok := v.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

func (t *Table) violation(phase errors.Phase, h Handle, detail string, args ...any) {
	err := errors.ContractViolation(phase, uint64(h), detail, args...)
	if t.debug {
		panic(err)
	}
	t.logger.Error("handle contract violation",
		zap.Stringer("handle", h),
		zap.String("phase", string(phase)),
		zap.Error(err),
	)
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	observers := t.observers
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnHandleEvent(e)
	}
}
