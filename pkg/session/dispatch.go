package session

import (
	"context"

	"github.com/go-kit/log/level"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/mailbox"
	"github.com/grafana/cassbridge/pkg/statement"
	"github.com/grafana/cassbridge/pkg/term"
)

// Connect connects the session, optionally into keyspace. An empty keyspace
// is the same as none. The calling process, taken from ctx, receives a
// SessionConnected message echoing token.
func (b *Bridge) Connect(ctx context.Context, h *Handle, token term.Term, keyspace ...string) error {
	if len(keyspace) > 1 {
		return b.badArgument(opConnect, "expected at most one keyspace, got %d", len(keyspace))
	}
	pid, ok := mailbox.Self(ctx)
	if !ok {
		return b.badArgument(opConnect, "no calling process")
	}
	s, ok := h.acquire()
	if !ok {
		return b.badArgument(opConnect, "invalid session handle")
	}
	defer h.release()

	var ks string
	if len(keyspace) == 1 {
		ks = keyspace[0]
	}

	cb := b.newCallbackInfo(opConnect, pid, token, nil, s)
	future, err := s.Connect(ks)
	if err != nil {
		cb.release()
		return b.rejected(opConnect, err)
	}
	return b.setCallback(opConnect, future, cb, func(f *driver.Future) {
		b.onSessionConnected(f, cb)
	})
}

// Close closes the session. The calling process receives a SessionClosed
// message carrying the returned reference.
func (b *Bridge) Close(ctx context.Context, h *Handle) (term.Ref, error) {
	pid, ok := mailbox.Self(ctx)
	if !ok {
		return term.Ref{}, b.badArgument(opClose, "no calling process")
	}
	s, ok := h.acquire()
	if !ok {
		return term.Ref{}, b.badArgument(opClose, "invalid session handle")
	}
	defer h.release()

	ref := term.MakeRef()
	cb := b.newCallbackInfo(opClose, pid, ref, nil, s)
	future, err := s.Close()
	if err != nil {
		cb.release()
		return term.Ref{}, b.rejected(opClose, err)
	}
	if err := b.setCallback(opClose, future, cb, func(f *driver.Future) {
		b.onSessionClosed(f, cb)
	}); err != nil {
		return term.Ref{}, err
	}
	return ref, nil
}

// Prepare prepares query, a string or byte slice optionally paired with an
// integer consistency level. The calling process receives a
// PreparedStatementResult message. Queries without a consistency level use
// the configured default.
func (b *Bridge) Prepare(ctx context.Context, h *Handle, query any, token term.Term) error {
	q, err := statement.DecodeQuery(query)
	if err != nil {
		return b.badArgument(opPrepare, "%v", err)
	}
	pid, ok := mailbox.Self(ctx)
	if !ok {
		return b.badArgument(opPrepare, "no calling process")
	}
	s, ok := h.acquire()
	if !ok {
		return b.badArgument(opPrepare, "invalid session handle")
	}

	cb := &statementCallbackInfo{
		consistency: q.ConsistencyOr(b.consistency),
		wrap:        b.wrap,
	}
	b.initCallbackInfo(&cb.callbackInfo, opPrepare, pid, token, h, s)
	future, err := s.Prepare(q.Text())
	if err != nil {
		cb.release()
		return b.rejected(opPrepare, err)
	}
	return b.setCallback(opPrepare, future, &cb.callbackInfo, func(f *driver.Future) {
		b.onStatementPrepared(f, cb)
	})
}

// Execute runs stmt, a *statement.Statement or anything exposing one. The
// result is delivered to dest, which need not be the calling process.
func (b *Bridge) Execute(ctx context.Context, h *Handle, stmt any, dest mailbox.PID, token term.Term) error {
	st := statement.Resolve(stmt)
	if st == nil {
		return b.badArgument(opExecute, "not a statement: %T", stmt)
	}
	if dest == mailbox.NilPID {
		return b.badArgument(opExecute, "invalid destination process")
	}
	s, ok := h.acquire()
	if !ok {
		return b.badArgument(opExecute, "invalid session handle")
	}

	cb := b.newCallbackInfo(opExecute, dest, token, h, s)
	future, err := s.Execute(st)
	if err != nil {
		cb.release()
		return b.rejected(opExecute, err)
	}
	return b.setCallback(opExecute, future, cb, func(f *driver.Future) {
		b.onStatementExecuted(f, cb)
	})
}

// GetMetrics returns a snapshot of the session metrics.
func (b *Bridge) GetMetrics(h *Handle) (*Snapshot, error) {
	s, ok := h.acquire()
	if !ok {
		return nil, b.badArgument("metrics", "invalid session handle")
	}
	defer h.release()
	return newSnapshot(s.Metrics()), nil
}

// setCallback hands cb over to the future. When the driver refuses the
// callback the operation is reported as failed and cb is released here.
func (b *Bridge) setCallback(op string, future *driver.Future, cb *callbackInfo, fn driver.Callback) error {
	if err := future.SetCallback(fn); err != nil {
		cb.release()
		return b.rejected(op, err)
	}
	return nil
}

func (b *Bridge) badArgument(op, format string, args ...any) error {
	b.metrics.operations.WithLabelValues(op, statusBadArgument).Inc()
	return badArgument(format, args...)
}

func (b *Bridge) rejected(op string, err error) error {
	b.metrics.operations.WithLabelValues(op, statusRejected).Inc()
	level.Warn(b.logger).Log("msg", "driver rejected operation", "op", op, "err", err)
	return rejection(err)
}
