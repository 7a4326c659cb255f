package session

import (
	"runtime"

	"go.uber.org/atomic"

	"github.com/grafana/cassbridge/pkg/driver"
)

// Handle owns one driver session. The owner holds an implicit reference and
// gives it up with Destroy; every operation that still needs the session after
// its dispatch returns holds an extra reference until it completes. The driver
// session is freed exactly once, when the last reference goes.
type Handle struct {
	session driver.Session

	// refs counts the references beyond the owner's, -1 once freed.
	refs      atomic.Int64
	destroyed atomic.Bool
	freed     atomic.Bool
}

func newHandle(s driver.Session) *Handle {
	h := &Handle{session: s}
	runtime.SetFinalizer(h, (*Handle).Destroy)
	return h
}

// acquire takes a reference on the session. It fails once the handle was
// destroyed.
func (h *Handle) acquire() (driver.Session, bool) {
	if h == nil {
		return nil, false
	}
	for {
		if h.destroyed.Load() {
			return nil, false
		}
		refs := h.refs.Load()
		if refs < 0 {
			return nil, false
		}
		if h.refs.CompareAndSwap(refs, refs+1) {
			return h.session, true
		}
	}
}

func (h *Handle) release() {
	if h.refs.Dec() == -1 {
		h.free()
	}
}

// Destroy gives up the owner reference. It is safe to call more than once.
func (h *Handle) Destroy() {
	if !h.destroyed.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(h, nil)
	h.release()
}

// Destroyed reports whether Destroy has been called.
func (h *Handle) Destroyed() bool {
	return h.destroyed.Load()
}

func (h *Handle) free() {
	if !h.freed.CompareAndSwap(false, true) {
		return
	}
	if h.session != nil {
		h.session.Free()
	}
}
