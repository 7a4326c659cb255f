package session

import (
	"github.com/go-kit/log/level"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/term"
)

// Completion handlers run on driver goroutines. Each delivers exactly one
// message and then releases its context.

func (b *Bridge) onSessionConnected(f *driver.Future, cb *callbackInfo) {
	b.complete(cb, func() Message {
		return SessionConnected{Token: cb.arguments, Err: f.Err()}
	}, func(err error) Message {
		return SessionConnected{Token: cb.arguments, Err: err}
	})
}

func (b *Bridge) onSessionClosed(f *driver.Future, cb *callbackInfo) {
	ref, _ := cb.arguments.(term.Ref)
	b.complete(cb, func() Message {
		return SessionClosed{Ref: ref, Err: f.Err()}
	}, func(err error) Message {
		return SessionClosed{Ref: ref, Err: err}
	})
}

func (b *Bridge) onStatementPrepared(f *driver.Future, cb *statementCallbackInfo) {
	b.complete(&cb.callbackInfo, func() Message {
		msg := PreparedStatementResult{Token: cb.arguments}
		if err := f.Err(); err != nil {
			msg.Err = err
			return msg
		}

		p := f.Prepared()
		if p == nil {
			msg.Err = driver.NewError(driver.ErrLibInternalError, "driver returned no prepared statement")
			return msg
		}

		// p and columns are released on every path, panics included, unless
		// the wrapped statement took them over.
		var columns *schema.ColumnsMap
		owned := false
		defer func() {
			if owned {
				return
			}
			p.Free()
			if columns != nil {
				columns.Release()
			}
		}()

		var err error
		if columns, err = b.lookup.Lookup(cb.session, p.Keyspace(), p.Table()); err != nil {
			msg.Err = &SchemaLookupError{Keyspace: p.Keyspace(), Table: p.Table(), Cause: err}
			return msg
		}

		stmt, err := cb.wrap(p, cb.consistency, columns)
		if err != nil {
			msg.Err = err
			return msg
		}
		owned = true
		msg.Statement = stmt
		return msg
	}, func(err error) Message {
		return PreparedStatementResult{Token: cb.arguments, Err: err}
	})
}

func (b *Bridge) onStatementExecuted(f *driver.Future, cb *callbackInfo) {
	b.complete(cb, func() Message {
		if err := f.Err(); err != nil {
			return ExecuteStatementResult{Token: cb.arguments, Err: err}
		}
		return ExecuteStatementResult{Token: cb.arguments, Result: f.Result()}
	}, func(err error) Message {
		return ExecuteStatementResult{Token: cb.arguments, Err: err}
	})
}

// complete builds the reply, sends it to the context's process and releases
// the context. A panic while building is reported through failed.
func (b *Bridge) complete(cb *callbackInfo, build func() Message, failed func(error) Message) {
	defer cb.release()

	msg, err := b.build(build)
	if err != nil {
		level.Error(b.logger).Log("msg", "failed to build completion message", "op", cb.op, "err", err)
		msg = failed(err)
	}
	if err := msg.Failed(); err != nil {
		level.Debug(b.logger).Log("msg", "operation failed", "op", cb.op, "err", err)
	}
	b.metrics.observe(cb.op, msg.Failed())

	if !b.mailboxes.Send(cb.pid, cb.env, msg) {
		b.metrics.undelivered.Inc()
		b.discard(msg)
	}
}

func (b *Bridge) build(build func() Message) (msg Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = driver.NewError(driver.ErrLibInternalError, "%v", r)
		}
	}()
	return build(), nil
}

// discard frees what an undelivered message owns.
func (b *Bridge) discard(msg Message) {
	if m, ok := msg.(PreparedStatementResult); ok && m.Statement != nil {
		m.Statement.Close()
	}
}
