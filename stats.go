package objbridge

import (
	"github.com/wippyai/objbridge/handle"
	"github.com/wippyai/objbridge/memory"
)

// Stats is a snapshot of a runtime's live objects and storage.
type Stats struct {
	ByType  map[string]int `yaml:"by_type"`
	Memory  memory.Stats   `yaml:"memory"`
	Objects int            `yaml:"objects"`
}

// Stats returns live object counts and allocator accounting.
func (rt *Runtime) Stats() Stats {
	s := Stats{
		ByType: make(map[string]int),
		Memory: rt.alloc.Stats(),
	}
	rt.table.Each(func(_ handle.Handle, id handle.TypeID, _ any) bool {
		s.Objects++
		s.ByType[TypeName(id)]++
		return true
	})
	return s
}

// Leak describes an object that is still alive.
type Leak struct {
	Type   string
	Trace  string
	Handle Handle
	Refs   int32
	State  handle.State
}

// Leaks lists every live object. Trace is populated in -tags tracing builds.
func (rt *Runtime) Leaks() []Leak {
	var out []Leak
	rt.table.Each(func(h handle.Handle, id handle.TypeID, _ any) bool {
		out = append(out, Leak{
			Handle: h,
			Type:   TypeName(id),
			Refs:   rt.table.RefCount(h),
			State:  rt.table.State(h),
			Trace:  rt.table.Trace(h),
		})
		return true
	})
	return out
}
