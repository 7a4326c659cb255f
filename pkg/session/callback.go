package session

import (
	"github.com/go-kit/log/level"
	"github.com/gocql/gocql"
	"go.uber.org/atomic"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/mailbox"
	"github.com/grafana/cassbridge/pkg/prepared"
	"github.com/grafana/cassbridge/pkg/term"
)

// callbackInfo is the per operation context carried from dispatch to
// completion. It owns the env the reply is built in and, for operations that
// need the session on completion, a reference on the handle.
type callbackInfo struct {
	bridge    *Bridge
	op        string
	pid       mailbox.PID
	env       *term.Env
	arguments term.Term

	handle  *Handle
	session driver.Session

	released atomic.Bool
}

// statementCallbackInfo is the context of a prepare.
type statementCallbackInfo struct {
	callbackInfo
	consistency gocql.Consistency
	wrap        prepared.WrapFunc
}

// newCallbackInfo copies arguments into a fresh env. When h is not nil the
// caller's reference on it is handed to the context.
func (b *Bridge) newCallbackInfo(op string, pid mailbox.PID, arguments term.Term, h *Handle, s driver.Session) *callbackInfo {
	cb := &callbackInfo{}
	b.initCallbackInfo(cb, op, pid, arguments, h, s)
	return cb
}

func (b *Bridge) initCallbackInfo(cb *callbackInfo, op string, pid mailbox.PID, arguments term.Term, h *Handle, s driver.Session) {
	env := term.NewEnv(&b.envs)
	cb.bridge = b
	cb.op = op
	cb.pid = pid
	cb.env = env
	cb.arguments = env.Copy(arguments)
	cb.handle = h
	cb.session = s

	b.contexts.allocated.Inc()
	b.metrics.contextsInFlight.Inc()
}

// release frees the env and drops the handle reference. Only the first call
// has an effect.
func (cb *callbackInfo) release() {
	b := cb.bridge
	if !cb.released.CompareAndSwap(false, true) {
		b.contexts.doubleReleased.Inc()
		b.metrics.contextDoubleReleases.Inc()
		level.Error(b.logger).Log("msg", "callback context released twice", "op", cb.op, "pid", cb.pid)
		return
	}
	cb.env.Free()
	if cb.handle != nil {
		cb.handle.release()
	}
	b.contexts.released.Inc()
	b.metrics.contextsInFlight.Dec()
}

// ContextStats counts callback contexts.
type ContextStats struct {
	allocated      atomic.Int64
	released       atomic.Int64
	doubleReleased atomic.Int64
}

func (s *ContextStats) Allocated() int64      { return s.allocated.Load() }
func (s *ContextStats) Released() int64       { return s.released.Load() }
func (s *ContextStats) DoubleReleased() int64 { return s.doubleReleased.Load() }

// InFlight returns the number of contexts not released yet.
func (s *ContextStats) InFlight() int64 {
	return s.allocated.Load() - s.released.Load()
}
