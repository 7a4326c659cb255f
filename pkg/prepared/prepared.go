package prepared

import (
	"fmt"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/grafana/cassbridge/pkg/driver"
	"github.com/grafana/cassbridge/pkg/schema"
	"github.com/grafana/cassbridge/pkg/statement"
)

var (
	ErrNoPrepared         = errors.New("missing prepared statement")
	ErrNoColumns          = errors.New("missing table schema")
	ErrInvalidConsistency = errors.New("invalid consistency level")
	ErrClosed             = errors.New("prepared statement closed")
)

// Statement is a prepared statement bundled with its table schema and a fixed
// consistency level. It owns the driver prepared handle and the columns map
// and releases both on Close.
type Statement struct {
	prepared    driver.Prepared
	columns     *schema.ColumnsMap
	consistency gocql.Consistency
	closed      atomic.Bool
}

// WrapFunc builds a Statement. On error the caller keeps ownership of the
// prepared handle and the columns map.
type WrapFunc func(p driver.Prepared, consistency gocql.Consistency, columns *schema.ColumnsMap) (*Statement, error)

// Wrap is the default WrapFunc.
func Wrap(p driver.Prepared, consistency gocql.Consistency, columns *schema.ColumnsMap) (*Statement, error) {
	if p == nil {
		return nil, ErrNoPrepared
	}
	if columns == nil {
		return nil, ErrNoColumns
	}
	if !ValidConsistency(consistency) {
		return nil, errors.Wrapf(ErrInvalidConsistency, "%d", uint16(consistency))
	}
	return &Statement{
		prepared:    p,
		columns:     columns,
		consistency: consistency,
	}, nil
}

// ValidConsistency reports whether c is a consistency level statements can run
// with. SERIAL and LOCAL_SERIAL are accepted for reads of data written with
// lightweight transactions.
func ValidConsistency(c gocql.Consistency) bool {
	switch c {
	case gocql.Any, gocql.One, gocql.Two, gocql.Three, gocql.Quorum, gocql.All,
		gocql.LocalQuorum, gocql.EachQuorum, gocql.LocalOne,
		gocql.Consistency(gocql.Serial), gocql.Consistency(gocql.LocalSerial):
		return true
	}
	return false
}

func (s *Statement) Query() string                  { return s.prepared.Query() }
func (s *Statement) Keyspace() string               { return s.prepared.Keyspace() }
func (s *Statement) Table() string                  { return s.prepared.Table() }
func (s *Statement) Consistency() gocql.Consistency { return s.consistency }
func (s *Statement) Columns() *schema.ColumnsMap    { return s.columns }

// Bind returns an executable statement with the given values.
func (s *Statement) Bind(values ...any) (*statement.Statement, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	stmt := statement.New(s.prepared.Query(), s.consistency, values...)
	stmt.Keyspace = s.prepared.Keyspace()
	stmt.Table = s.prepared.Table()
	return stmt, nil
}

// BindNamed returns an executable statement binding values in the order of
// names, checking every name against the table schema.
func (s *Statement) BindNamed(names []string, values map[string]any) (*statement.Statement, error) {
	bound := make([]any, 0, len(names))
	for _, name := range names {
		if _, ok := s.columns.Type(name); !ok {
			return nil, errors.Errorf("unknown column %q in %s", name, s.columns)
		}
		v, ok := values[name]
		if !ok {
			return nil, errors.Errorf("no value for column %q", name)
		}
		bound = append(bound, v)
	}
	return s.Bind(bound...)
}

// Close releases the prepared handle and the columns map. It is safe to call
// more than once.
func (s *Statement) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.prepared.Free()
	s.columns.Release()
}

func (s *Statement) String() string {
	return fmt.Sprintf("%s.%s [%s] %q", s.Keyspace(), s.Table(), s.consistency, s.Query())
}
