package schema

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrTableNotFound is returned when the keyspace or the table does not exist.
var ErrTableNotFound = errors.New("table not found")

// Column describes one column of a table.
type Column struct {
	Name string
	Type string
	Kind string
}

// ColumnsMap maps the column names of a table to their types. It is owned by
// whoever holds it last and must be released exactly once.
type ColumnsMap struct {
	Keyspace string
	Table    string

	columns  []Column
	index    map[string]int
	released atomic.Bool
}

// NewColumnsMap builds a ColumnsMap from the ordered columns of a table.
func NewColumnsMap(keyspace, table string, columns []Column) *ColumnsMap {
	m := &ColumnsMap{
		Keyspace: keyspace,
		Table:    table,
		columns:  make([]Column, len(columns)),
		index:    make(map[string]int, len(columns)),
	}
	copy(m.columns, columns)
	for i, c := range m.columns {
		m.index[c.Name] = i
	}
	return m
}

// Len returns the number of columns.
func (m *ColumnsMap) Len() int {
	return len(m.columns)
}

// Columns returns the columns in table order.
func (m *ColumnsMap) Columns() []Column {
	return m.columns
}

// Type returns the type of the named column.
func (m *ColumnsMap) Type(name string) (string, bool) {
	i, ok := m.index[name]
	if !ok {
		return "", false
	}
	return m.columns[i].Type, true
}

// Release marks the map as released. It returns false if it already was.
func (m *ColumnsMap) Release() bool {
	return m.released.CompareAndSwap(false, true)
}

// Released reports whether Release has been called.
func (m *ColumnsMap) Released() bool {
	return m.released.Load()
}

func (m *ColumnsMap) String() string {
	return fmt.Sprintf("%s.%s(%d columns)", m.Keyspace, m.Table, len(m.columns))
}

// Source returns the ordered columns of a table.
type Source interface {
	TableColumns(keyspace, table string) ([]Column, error)
}

// Lookup resolves the column mapping of a table.
type Lookup interface {
	Lookup(src Source, keyspace, table string) (*ColumnsMap, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(src Source, keyspace, table string) (*ColumnsMap, error)

func (f LookupFunc) Lookup(src Source, keyspace, table string) (*ColumnsMap, error) {
	return f(src, keyspace, table)
}

// Direct queries the source on every lookup.
var Direct Lookup = LookupFunc(direct)

func direct(src Source, keyspace, table string) (*ColumnsMap, error) {
	if table == "" {
		return nil, errors.Wrap(ErrTableNotFound, "statement has no target table")
	}
	columns, err := src.TableColumns(keyspace, table)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up %s.%s", keyspace, table)
	}
	if len(columns) == 0 {
		return nil, errors.Wrapf(ErrTableNotFound, "%s.%s", keyspace, table)
	}
	return NewColumnsMap(keyspace, table, columns), nil
}
