package statement

import (
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statementHolder struct{ s *Statement }

func (h statementHolder) Statement() *Statement { return h.s }

func TestDecodeQuery(t *testing.T) {
	for _, tc := range []struct {
		name        string
		arg         any
		text        string
		consistency gocql.Consistency
		err         bool
	}{
		{name: "string", arg: "SELECT * FROM t", text: "SELECT * FROM t", consistency: gocql.LocalQuorum},
		{name: "bytes", arg: []byte("SELECT 1"), text: "SELECT 1", consistency: gocql.LocalQuorum},
		{name: "pair", arg: []any{"SELECT 1", 2}, text: "SELECT 1", consistency: gocql.Two},
		{name: "pair with bytes", arg: []any{[]byte("SELECT 1"), int32(1)}, text: "SELECT 1", consistency: gocql.One},
		{name: "typed", arg: WithConsistency{Query: "q", Consistency: gocql.All}, text: "q", consistency: gocql.All},
		{name: "plain", arg: Plain("q"), text: "q", consistency: gocql.LocalQuorum},
		{name: "triple", arg: []any{"SELECT 1", 2, 3}, err: true},
		{name: "single", arg: []any{"SELECT 1"}, err: true},
		{name: "float consistency", arg: []any{"SELECT 1", 2.5}, err: true},
		{name: "negative consistency", arg: []any{"SELECT 1", -1}, err: true},
		{name: "non string query", arg: []any{42, 1}, err: true},
		{name: "integer", arg: 42, err: true},
		{name: "nil", arg: nil, err: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q, err := DecodeQuery(tc.arg)
			if tc.err {
				require.ErrorIs(t, err, ErrUnknownQueryShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.text, q.Text())
			assert.Equal(t, tc.consistency, q.ConsistencyOr(gocql.LocalQuorum))
		})
	}
}

func TestResolve(t *testing.T) {
	s := New("SELECT * FROM t WHERE id = ?", gocql.One, 1)

	require.Same(t, s, Resolve(s))
	require.Same(t, s, Resolve(statementHolder{s}))
	require.Nil(t, Resolve("SELECT 1"))
	require.Nil(t, Resolve(nil))

	var missing *Statement
	require.Nil(t, Resolve(missing))
}

func TestStatementOptions(t *testing.T) {
	s := New("SELECT * FROM t", gocql.Quorum).WithPaging(100, []byte{1, 2}).Bind("a", []byte("bc"), 3)

	assert.Equal(t, 100, s.PageSize)
	assert.Equal(t, []byte{1, 2}, s.PagingState)
	assert.Equal(t, []any{"a", []byte("bc"), 3}, s.Values)
	assert.Equal(t, len("SELECT * FROM t")+1+2+8, s.Size())
}
