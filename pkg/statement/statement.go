package statement

import (
	"github.com/gocql/gocql"
	"github.com/pkg/errors"
)

// Statement is an executable CQL statement with its bound values and options.
type Statement struct {
	Query             string
	Values            []any
	Consistency       gocql.Consistency
	SerialConsistency gocql.SerialConsistency
	PageSize          int
	PagingState       []byte

	// Keyspace and Table are known for statements created from a prepared
	// statement.
	Keyspace string
	Table    string
}

// New returns a simple statement using the given consistency.
func New(query string, consistency gocql.Consistency, values ...any) *Statement {
	return &Statement{
		Query:       query,
		Values:      values,
		Consistency: consistency,
	}
}

// WithPaging sets the page size and the paging state to resume from.
func (s *Statement) WithPaging(pageSize int, pagingState []byte) *Statement {
	s.PageSize = pageSize
	s.PagingState = pagingState
	return s
}

// Bind replaces the bound values.
func (s *Statement) Bind(values ...any) *Statement {
	s.Values = values
	return s
}

// Size estimates how many bytes the statement writes on the wire.
func (s *Statement) Size() int {
	n := len(s.Query)
	for _, v := range s.Values {
		switch v := v.(type) {
		case string:
			n += len(v)
		case []byte:
			n += len(v)
		default:
			n += 8
		}
	}
	return n
}

// Resolve returns the statement referenced by arg, or nil if arg does not
// reference one.
func Resolve(arg any) *Statement {
	switch s := arg.(type) {
	case *Statement:
		return s
	case interface{ Statement() *Statement }:
		return s.Statement()
	}
	return nil
}

// ErrUnknownQueryShape is returned by DecodeQuery for arguments that are neither
// a query nor a query with a consistency level.
var ErrUnknownQueryShape = errors.New("expected a query string or a {query, consistency} pair")

// Query is what a statement is prepared from.
type Query interface {
	// Text returns the CQL text.
	Text() string
	// ConsistencyOr returns the consistency carried by the query, or def.
	ConsistencyOr(def gocql.Consistency) gocql.Consistency
}

// Plain is a bare query string, prepared with the default consistency.
type Plain string

func (q Plain) Text() string                                           { return string(q) }
func (q Plain) ConsistencyOr(def gocql.Consistency) gocql.Consistency { return def }

// WithConsistency is a query with an explicit consistency level.
type WithConsistency struct {
	Query       string
	Consistency gocql.Consistency
}

func (q WithConsistency) Text() string                                         { return q.Query }
func (q WithConsistency) ConsistencyOr(gocql.Consistency) gocql.Consistency { return q.Consistency }

// DecodeQuery decodes a loosely typed query argument. Accepted shapes are a
// string or byte slice, or a two element slice of query and integer
// consistency level.
func DecodeQuery(arg any) (Query, error) {
	switch v := arg.(type) {
	case Query:
		return v, nil
	case string:
		return Plain(v), nil
	case []byte:
		return Plain(v), nil
	case []any:
		if len(v) != 2 {
			return nil, errors.Wrapf(ErrUnknownQueryShape, "got a tuple of %d elements", len(v))
		}
		var text string
		switch q := v[0].(type) {
		case string:
			text = q
		case []byte:
			text = string(q)
		default:
			return nil, errors.Wrapf(ErrUnknownQueryShape, "query is a %T", v[0])
		}
		level, ok := toInt(v[1])
		if !ok {
			return nil, errors.Wrapf(ErrUnknownQueryShape, "consistency level is a %T", v[1])
		}
		if level < 0 || level > 0xFFFF {
			return nil, errors.Wrapf(ErrUnknownQueryShape, "consistency level %d out of range", level)
		}
		return WithConsistency{Query: text, Consistency: gocql.Consistency(level)}, nil
	}
	return nil, errors.Wrapf(ErrUnknownQueryShape, "got %T", arg)
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}
