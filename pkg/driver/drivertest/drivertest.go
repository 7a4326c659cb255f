// Package drivertest provides an in-memory driver with programmable outcomes
// and allocation tracking, for testing code built on the driver package.
package drivertest

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/statement"
)

// Op names a session operation.
type Op string

const (
	OpConnect Op = "connect"
	OpClose   Op = "close"
	OpPrepare Op = "prepare"
	OpExecute Op = "execute"
)

// Driver hands out fake sessions.
type Driver struct {
	// FailAlloc makes NewSession return nil.
	FailAlloc bool
	// Setup, if set, is called on every new session before it is returned.
	Setup func(*Session)

	mtx      sync.Mutex
	sessions []*Session
}

// NewSession implements driver.Driver.
func (d *Driver) NewSession() driver.Session {
	if d.FailAlloc {
		return nil
	}
	s := NewSession()
	if d.Setup != nil {
		d.Setup(s)
	}

	d.mtx.Lock()
	d.sessions = append(d.sessions, s)
	d.mtx.Unlock()
	return s
}

// Sessions returns every session created so far.
func (d *Driver) Sessions() []*Session {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]*Session(nil), d.sessions...)
}

// Call records one operation issued on a session.
type Call struct {
	Op        Op
	Keyspace  string
	Query     string
	Statement *statement.Statement
}

// Session is a fake driver.Session. Unless held, every future resolves on its
// own goroutine right after the call returns.
type Session struct {
	// Target is the keyspace and table reported by prepared statements.
	Target [2]string
	// Tables feeds TableColumns, keyed by "keyspace.table".
	Tables map[string][]schema.Column
	// ExecuteFunc, if set, computes the result of executed statements.
	ExecuteFunc func(*statement.Statement) (*driver.Result, *driver.Error)

	frees atomic.Int32

	mtx       sync.Mutex
	hold      bool
	held      []func()
	calls     []Call
	failures  map[Op]*driver.Error
	rejects   map[Op]error
	tableErr  error
	metrics   driver.Metrics
	prepareds []*Prepared
}

// NewSession returns a fake session reporting prepared statements on ks.t.
func NewSession() *Session {
	return &Session{
		Target:   [2]string{"ks", "t"},
		Tables:   map[string][]schema.Column{"ks.t": {{Name: "id", Type: "int", Kind: "partition_key"}, {Name: "v", Type: "varchar", Kind: "regular"}}},
		failures: map[Op]*driver.Error{},
		rejects:  map[Op]error{},
	}
}

// Fail makes every future of op resolve with the given error.
func (s *Session) Fail(op Op, code driver.ErrorCode, message string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.failures[op] = &driver.Error{Code: code, Message: message}
}

// Reject makes every call of op fail synchronously with err.
func (s *Session) Reject(op Op, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.rejects[op] = err
}

// FailTableLookup makes TableColumns fail with err.
func (s *Session) FailTableLookup(err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.tableErr = err
}

// SetMetrics sets what Metrics returns.
func (s *Session) SetMetrics(m driver.Metrics) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.metrics = m
}

// Hold stops futures from resolving until Release is called.
func (s *Session) Hold() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.hold = true
}

// Release resolves every held future, each on its own goroutine, and stops
// holding. It returns how many futures were released.
func (s *Session) Release() int {
	s.mtx.Lock()
	held := s.held
	s.held = nil
	s.hold = false
	s.mtx.Unlock()

	for _, resolve := range held {
		go resolve()
	}
	return len(held)
}

// Calls returns the operations issued so far.
func (s *Session) Calls() []Call {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]Call(nil), s.calls...)
}

// Frees returns how many times the session was freed.
func (s *Session) Frees() int {
	return int(s.frees.Load())
}

// Prepareds returns every prepared statement handed out.
func (s *Session) Prepareds() []*Prepared {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]*Prepared(nil), s.prepareds...)
}

func (s *Session) issue(call Call, resolve func(f *driver.Future)) (*driver.Future, error) {
	s.mtx.Lock()
	s.calls = append(s.calls, call)
	if err := s.rejects[call.Op]; err != nil {
		s.mtx.Unlock()
		return nil, err
	}
	failure := s.failures[call.Op]

	f := driver.NewFuture()
	run := func() {
		if failure != nil {
			f.Fail(failure.Code, failure.Message)
			return
		}
		resolve(f)
	}
	if s.hold {
		s.held = append(s.held, run)
		s.mtx.Unlock()
		return f, nil
	}
	s.mtx.Unlock()

	go run()
	return f, nil
}

func (s *Session) Connect(keyspace string) (*driver.Future, error) {
	return s.issue(Call{Op: OpConnect, Keyspace: keyspace}, func(f *driver.Future) {
		f.Resolve(nil)
	})
}

func (s *Session) Close() (*driver.Future, error) {
	return s.issue(Call{Op: OpClose}, func(f *driver.Future) {
		f.Resolve(nil)
	})
}

func (s *Session) Prepare(query string) (*driver.Future, error) {
	return s.issue(Call{Op: OpPrepare, Query: query}, func(f *driver.Future) {
		p := &Prepared{query: query, keyspace: s.Target[0], table: s.Target[1]}
		s.mtx.Lock()
		s.prepareds = append(s.prepareds, p)
		s.mtx.Unlock()
		f.ResolvePrepared(p)
	})
}

func (s *Session) Execute(stmt *statement.Statement) (*driver.Future, error) {
	return s.issue(Call{Op: OpExecute, Query: stmt.Query, Statement: stmt}, func(f *driver.Future) {
		if s.ExecuteFunc == nil {
			f.Resolve(&driver.Result{
				Columns: []driver.ColumnInfo{{Name: "query", Type: "varchar"}},
				Rows:    [][]any{{stmt.Query}},
			})
			return
		}
		result, err := s.ExecuteFunc(stmt)
		if err != nil {
			f.Fail(err.Code, err.Message)
			return
		}
		f.Resolve(result)
	})
}

// TableColumns implements schema.Source.
func (s *Session) TableColumns(keyspace, table string) ([]schema.Column, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.tableErr != nil {
		return nil, s.tableErr
	}
	return s.Tables[keyspace+"."+table], nil
}

func (s *Session) Metrics() driver.Metrics {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.metrics
}

func (s *Session) Free() {
	s.frees.Inc()
}

// Prepared is a fake driver.Prepared counting its frees.
type Prepared struct {
	query, keyspace, table string
	frees                  atomic.Int32
}

func (p *Prepared) Query() string    { return p.query }
func (p *Prepared) Keyspace() string { return p.keyspace }
func (p *Prepared) Table() string    { return p.table }
func (p *Prepared) Free()            { p.frees.Inc() }

// Frees returns how many times the statement was freed.
func (p *Prepared) Frees() int {
	return int(p.frees.Load())
}

// NewPrepared returns a standalone fake prepared statement.
func NewPrepared(query, keyspace, table string) *Prepared {
	return &Prepared{query: query, keyspace: keyspace, table: table}
}
