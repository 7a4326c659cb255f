package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/mailbox"
	"github.com/grafana/cassbridge/pkg/session"
	"github.com/grafana/cassbridge/pkg/statement"
)

type runner struct {
	bridge    *session.Bridge
	mailboxes *mailbox.Registry
	logger    log.Logger
	keyspace  string
	limit     int
	metrics   bool
	out       io.Writer
}

// run connects a session, runs every query and closes the session again.
func (r *runner) run(ctx context.Context, queries []string) error {
	h, err := r.bridge.NewSession()
	if err != nil {
		return err
	}
	defer h.Destroy()

	self := r.mailboxes.Spawn()
	defer self.Close()
	ctx = mailbox.WithSelf(ctx, self.PID())

	if err := r.bridge.Connect(ctx, h, "connect", r.keyspace); err != nil {
		return errors.Wrap(err, "connect")
	}
	msg, err := receive[session.SessionConnected](ctx, self)
	if err != nil {
		return err
	}
	if msg.Err != nil {
		return errors.Wrap(msg.Err, "connect")
	}
	level.Debug(r.logger).Log("msg", "connected", "keyspace", r.keyspace)

	results := make([]*driver.Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, query := range queries {
		i, query := i, query
		g.Go(func() error {
			result, err := r.query(gctx, h, query)
			if err != nil {
				return errors.Wrapf(err, "query %d", i)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, result := range results {
		r.print(queries[i], result)
	}

	if r.metrics {
		snapshot, err := r.bridge.GetMetrics(h)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(snapshot)
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Fprintf(r.out, "%s\n%s", color.New(color.Bold).Sprint("metrics"), out)
	}

	ref, err := r.bridge.Close(ctx, h)
	if err != nil {
		return errors.Wrap(err, "close")
	}
	closed, err := receive[session.SessionClosed](ctx, self)
	if err != nil {
		return err
	}
	if closed.Ref != ref {
		return errors.Errorf("close completed for %s, expected %s", closed.Ref, ref)
	}
	return errors.Wrap(closed.Err, "close")
}

// query prepares and executes one query from its own process. Queries without
// a target table cannot be prepared and run as simple statements.
func (r *runner) query(ctx context.Context, h *session.Handle, query string) (*driver.Result, error) {
	self := r.mailboxes.Spawn()
	defer self.Close()
	ctx = mailbox.WithSelf(ctx, self.PID())

	if err := r.bridge.Prepare(ctx, h, query, query); err != nil {
		return nil, err
	}
	prepared, err := receive[session.PreparedStatementResult](ctx, self)
	if err != nil {
		return nil, err
	}

	var stmt *statement.Statement
	switch {
	case prepared.Err == nil:
		defer prepared.Statement.Close()
		if stmt, err = prepared.Statement.Bind(); err != nil {
			return nil, err
		}
	case errors.Is(prepared.Err, session.ErrSchemaLookup):
		level.Warn(r.logger).Log("msg", "running query unprepared", "query", query, "err", prepared.Err)
		stmt = statement.New(query, r.bridge.DefaultConsistency())
	default:
		return nil, prepared.Err
	}

	if err := r.bridge.Execute(ctx, h, stmt, self.PID(), query); err != nil {
		return nil, err
	}
	executed, err := receive[session.ExecuteStatementResult](ctx, self)
	if err != nil {
		return nil, err
	}
	return executed.Result, executed.Err
}

func (r *runner) print(query string, result *driver.Result) {
	bold := color.New(color.Bold)
	bold.Fprintln(r.out, query)
	if result == nil {
		return
	}

	names := make([]string, 0, len(result.Columns))
	for _, c := range result.Columns {
		names = append(names, c.Name)
	}
	fmt.Fprintln(r.out, color.BlueString(strings.Join(names, "\t")))
	for _, row := range result.Rows {
		values := make([]string, 0, len(row))
		for _, v := range row {
			values = append(values, fmt.Sprint(v))
		}
		fmt.Fprintln(r.out, strings.Join(values, "\t"))
	}
	if result.HasMorePages() {
		fmt.Fprintln(r.out, color.YellowString("(more pages)"))
	}
	fmt.Fprintln(r.out)
}

// receive waits for the next message of process m, which must be a T.
func receive[T session.Message](ctx context.Context, m *mailbox.Mailbox) (T, error) {
	var zero T
	msg, err := m.Receive(ctx)
	if err != nil {
		return zero, errors.WithStack(err)
	}
	t, ok := msg.(T)
	if !ok {
		return zero, errors.Errorf("unexpected message %T", msg)
	}
	return t, nil
}
