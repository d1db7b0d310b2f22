package objbridge

import (
	"go.uber.org/zap"
)

// Transfer hands the caller's reference to h over to the owner runtime.
// The refcount is unchanged; the owner must release it exactly once.
func (rt *Runtime) Transfer(h Handle) Handle {
	if h.IsNull() {
		return Null
	}
	return rt.table.Transfer(h)
}

// Return applies the transfer convention to a constructor result. A failed
// constructor yields Null and the error is logged.
func (rt *Runtime) Return(h Handle, err error) Handle {
	if err != nil {
		rt.logger.Error("bridge call failed", zap.Error(err))
		return Null
	}
	return rt.Transfer(h)
}

// Optional returns h when ok, otherwise releases h (if any) and returns
// Null.
func (rt *Runtime) Optional(h Handle, ok bool) Handle {
	if ok {
		return h
	}
	if !h.IsNull() {
		rt.table.ReleaseLocal(h)
	}
	return Null
}
