//go:build !tracing

package handle

import "sync/atomic"

type refcnt struct {
	val atomic.Int32
}

func (v *refcnt) init(val int32) {
	v.val.Store(val)
}

func (v *refcnt) refs() int32 {
	return v.val.Load()
}

func (v *refcnt) acquire() int32 {
	return v.val.Add(1)
}

func (v *refcnt) release() int32 {
	return v.val.Add(-1)
}

// undo reverts a release that drove the count negative.
func (v *refcnt) undo() {
	v.val.Add(1)
}

func (v *refcnt) traces() string {
	return ""
}
