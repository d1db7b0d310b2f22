//go:build tracing

package handle

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
)

type refcnt struct {
	val atomic.Int32
	sync.Mutex
	msgs []string
}

func (v *refcnt) init(val int32) {
	v.Lock()
	v.msgs = v.msgs[:0]
	v.Unlock()
	v.val.Store(val)
	v.trace("init")
}

func (v *refcnt) refs() int32 {
	return v.val.Load()
}

func (v *refcnt) acquire() int32 {
	n := v.val.Add(1)
	v.trace("acquire")
	return n
}

func (v *refcnt) release() int32 {
	n := v.val.Add(-1)
	v.trace("release")
	return n
}

func (v *refcnt) undo() {
	v.val.Add(1)
	v.trace("undo")
}

func (v *refcnt) trace(msg string) {
	s := fmt.Sprintf("%s: refs=%d\n%s", msg, v.refs(), debug.Stack())
	v.Lock()
	v.msgs = append(v.msgs, s)
	v.Unlock()
}

func (v *refcnt) traces() string {
	v.Lock()
	s := strings.Join(v.msgs, "\n")
	v.Unlock()
	return s
}
