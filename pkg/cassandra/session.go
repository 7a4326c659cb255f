package cassandra

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gocql/gocql"
	"github.com/grafana/dskit/instrument"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/statement"
)

var errNotConnected = errors.New("session is not connected")

// Session implements driver.Session on a gocql session. Requests run on the
// session executor; Connect creates the gocql session and Close tears it down,
// so a Session can be connected again after it was closed.
type Session struct {
	cfg     Config
	logger  log.Logger
	metrics *driverMetrics
	stats   *stats
	exec    *executor

	mtx      sync.RWMutex
	session  *gocql.Session
	keyspace string

	freed atomic.Bool
}

func newSession(cfg Config, logger log.Logger, m *driverMetrics) *Session {
	st := newStats(cfg.WriteBytesHighWaterMark)
	return &Session{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		stats:   st,
		exec:    newExecutor(cfg.CallbackGoroutines, cfg.MaxPendingRequests, cfg.PendingRequestTimeout, m.queueLength, st),
	}
}

// submit queues run under op. A full queue rejects the request synchronously.
func (s *Session) submit(op string, size int, run func(f *driver.Future)) (*driver.Future, error) {
	f := driver.NewFuture()
	t := &task{
		size: size,
		run: func() {
			s.stats.inFlight.Inc()
			defer s.stats.inFlight.Dec()
			run(f)
		},
		fail: func(code driver.ErrorCode, message string) {
			f.Fail(code, message)
		},
	}
	switch err := s.exec.submit(t); err {
	case nil:
		return f, nil
	case errQueueFull:
		s.stats.exceededPendingRequestsWaterMark.Inc()
		s.metrics.rejected.WithLabelValues(op).Inc()
		return nil, driver.NewError(driver.ErrLibRequestQueueFull, "%s: %v", op, err)
	default:
		return nil, driver.NewError(driver.ErrLibUnableToConnect, "%s: %v", op, err)
	}
}

func (s *Session) current() (*gocql.Session, string) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.session, s.keyspace
}

// Connect implements driver.Session.
func (s *Session) Connect(keyspace string) (*driver.Future, error) {
	return s.submit("connect", 0, func(f *driver.Future) {
		if gs, _ := s.current(); gs != nil {
			f.Fail(driver.ErrLibUnableToConnect, "session is already connected")
			return
		}

		cluster, err := s.cfg.cluster(keyspace)
		if err != nil {
			fail(f, err, driver.ErrLibBadParams)
			return
		}
		cluster.QueryObserver = s.stats
		cluster.ConnectObserver = s.stats

		gs, err := cluster.CreateSession()
		if err != nil {
			level.Warn(s.logger).Log("msg", "failed to connect", "keyspace", cluster.Keyspace, "err", err)
			fail(f, err, driver.ErrLibUnableToConnect)
			return
		}

		s.mtx.Lock()
		if s.session != nil {
			s.mtx.Unlock()
			gs.Close()
			f.Fail(driver.ErrLibUnableToConnect, "session is already connected")
			return
		}
		s.session, s.keyspace = gs, cluster.Keyspace
		s.mtx.Unlock()

		level.Debug(s.logger).Log("msg", "connected", "keyspace", cluster.Keyspace)
		f.Resolve(nil)
	})
}

// Close implements driver.Session.
func (s *Session) Close() (*driver.Future, error) {
	return s.submit("close", 0, func(f *driver.Future) {
		s.mtx.Lock()
		gs := s.session
		s.session, s.keyspace = nil, ""
		s.mtx.Unlock()

		if gs == nil {
			f.Fail(driver.ErrLibUnableToClose, errNotConnected.Error())
			return
		}
		gs.Close()
		f.Resolve(nil)
	})
}

// Prepare implements driver.Session. gocql prepares statements on first
// execution and caches them per connection, so this resolves the target table
// of the statement against the session keyspace. The server is not contacted:
// an invalid query prepares successfully and its error surfaces on Execute.
func (s *Session) Prepare(query string) (*driver.Future, error) {
	return s.submit("prepare", len(query), func(f *driver.Future) {
		gs, keyspace := s.current()
		if gs == nil {
			f.Fail(driver.ErrLibNoHostsAvailable, errNotConnected.Error())
			return
		}
		ks, table := parseTarget(query)
		if ks == "" {
			ks = keyspace
		}
		f.ResolvePrepared(&preparedStatement{query: query, keyspace: ks, table: table})
	})
}

// Execute implements driver.Session.
func (s *Session) Execute(stmt *statement.Statement) (*driver.Future, error) {
	if stmt == nil {
		return nil, driver.NewError(driver.ErrLibBadParams, "nil statement")
	}
	st := *stmt
	st.Values = append([]any(nil), stmt.Values...)

	return s.submit("execute", st.Size(), func(f *driver.Future) {
		gs, _ := s.current()
		if gs == nil {
			f.Fail(driver.ErrLibNoHostsAvailable, errNotConnected.Error())
			return
		}

		var result *driver.Result
		err := instrument.CollectedRequest(context.Background(), "execute", s.metrics.requestDuration, statusCode, func(ctx context.Context) error {
			var err error
			result, err = s.execute(ctx, gs, &st)
			return err
		})
		if err != nil {
			code, message := errorCode(err, driver.ErrLibInternalError)
			if code == driver.ErrLibRequestTimedOut {
				s.stats.requestTimeouts.Inc()
			}
			f.Fail(code, message)
			return
		}
		f.Resolve(result)
	})
}

func (s *Session) execute(ctx context.Context, gs *gocql.Session, st *statement.Statement) (*driver.Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	q := gs.Query(st.Query, st.Values...).WithContext(ctx).Consistency(st.Consistency)
	if st.SerialConsistency != 0 {
		q = q.SerialConsistency(st.SerialConsistency)
	}
	if st.PageSize > 0 {
		q = q.PageSize(st.PageSize)
	}
	if len(st.PagingState) > 0 {
		q = q.PageState(st.PagingState)
	}

	iter := q.Iter()
	columns := iter.Columns()
	result := &driver.Result{Columns: make([]driver.ColumnInfo, 0, len(columns))}
	for _, c := range columns {
		result.Columns = append(result.Columns, driver.ColumnInfo{
			Keyspace: c.Keyspace,
			Table:    c.Table,
			Name:     c.Name,
			Type:     c.TypeInfo.Type().String(),
		})
	}

	for i := 0; st.PageSize <= 0 || i < st.PageSize; i++ {
		row := map[string]any{}
		if !iter.MapScan(row) {
			break
		}
		values := make([]any, len(columns))
		for j, c := range columns {
			values[j] = row[c.Name]
		}
		result.Rows = append(result.Rows, values)
	}
	result.PagingState = iter.PageState()

	if err := iter.Close(); err != nil {
		return nil, errors.WithStack(err)
	}
	return result, nil
}

func statusCode(err error) string {
	code, _ := errorCode(err, driver.ErrLibInternalError)
	return code.String()
}

// TableColumns implements schema.Source using the cluster metadata.
func (s *Session) TableColumns(keyspace, table string) ([]schema.Column, error) {
	gs, current := s.current()
	if gs == nil {
		return nil, errNotConnected
	}
	if keyspace == "" {
		keyspace = current
	}

	md, err := gs.KeyspaceMetadata(keyspace)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	tm, ok := md.Tables[table]
	if !ok {
		return nil, nil
	}

	columns := make([]schema.Column, 0, len(tm.OrderedColumns))
	for _, name := range tm.OrderedColumns {
		c, ok := tm.Columns[name]
		if !ok {
			continue
		}
		columns = append(columns, schema.Column{
			Name: c.Name,
			Type: c.Type.Type().String(),
			Kind: c.Kind.String(),
		})
	}
	return columns, nil
}

// Metrics implements driver.Session.
func (s *Session) Metrics() driver.Metrics {
	return s.stats.snapshot()
}

// Free stops the executor and closes the gocql session once the executor
// goroutines exited.
func (s *Session) Free() {
	if !s.freed.CompareAndSwap(false, true) {
		return
	}
	s.exec.stop(func() {
		s.mtx.Lock()
		gs := s.session
		s.session = nil
		s.mtx.Unlock()
		if gs != nil {
			gs.Close()
		}
		s.stats.stop()
	})
}

// preparedStatement is a statement whose target table is known.
type preparedStatement struct {
	query    string
	keyspace string
	table    string
}

func (p *preparedStatement) Query() string    { return p.query }
func (p *preparedStatement) Keyspace() string { return p.keyspace }
func (p *preparedStatement) Table() string    { return p.table }
func (p *preparedStatement) Free()            {}
