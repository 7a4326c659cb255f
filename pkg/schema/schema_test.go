package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	tables map[string][]Column
	calls  int
	err    error
}

func (m *mockSource) TableColumns(keyspace, table string) ([]Column, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.tables[keyspace+"."+table], nil
}

var usersColumns = []Column{
	{Name: "id", Type: "uuid", Kind: "partition_key"},
	{Name: "name", Type: "varchar", Kind: "regular"},
}

func TestColumnsMap(t *testing.T) {
	m := NewColumnsMap("ks", "users", usersColumns)

	require.Equal(t, 2, m.Len())
	typ, ok := m.Type("name")
	require.True(t, ok)
	require.Equal(t, "varchar", typ)
	_, ok = m.Type("missing")
	require.False(t, ok)
	require.Equal(t, "ks.users(2 columns)", m.String())

	require.False(t, m.Released())
	require.True(t, m.Release())
	require.False(t, m.Release())
	require.True(t, m.Released())
}

func TestDirectLookup(t *testing.T) {
	src := &mockSource{tables: map[string][]Column{"ks.users": usersColumns}}

	m, err := Direct.Lookup(src, "ks", "users")
	require.NoError(t, err)
	require.Equal(t, usersColumns, m.Columns())

	_, err = Direct.Lookup(src, "ks", "missing")
	require.ErrorIs(t, err, ErrTableNotFound)

	_, err = Direct.Lookup(src, "ks", "")
	require.ErrorIs(t, err, ErrTableNotFound)
	require.Equal(t, 2, src.calls)

	boom := errors.New("boom")
	src.err = boom
	_, err = Direct.Lookup(src, "ks", "users")
	require.ErrorIs(t, err, boom)
}

func TestCachedLookup(t *testing.T) {
	src := &mockSource{tables: map[string][]Column{"ks.users": usersColumns}}
	lookup := NewCachedLookup(CacheConfig{Size: 10, TTL: time.Hour}, Direct, prometheus.NewPedanticRegistry())
	cached := lookup.(*cachedLookup)

	first, err := lookup.Lookup(src, "ks", "users")
	require.NoError(t, err)
	second, err := lookup.Lookup(src, "ks", "users")
	require.NoError(t, err)

	require.Equal(t, 1, src.calls)
	require.NotSame(t, first, second)
	assert.Equal(t, first.Columns(), second.Columns())

	// releasing one copy does not affect the other
	first.Release()
	assert.False(t, second.Released())

	_, err = lookup.Lookup(src, "ks", "missing")
	require.Error(t, err)
	_, err = lookup.Lookup(src, "ks", "missing")
	require.Error(t, err)
	require.Equal(t, 3, src.calls)

	assert.Equal(t, float64(1), testutil.ToFloat64(cached.hits))
	assert.Equal(t, float64(3), testutil.ToFloat64(cached.misses))
}

func TestCachedLookupDisabled(t *testing.T) {
	lookup := NewCachedLookup(CacheConfig{Size: 0}, Direct, prometheus.NewPedanticRegistry())
	require.NotNil(t, lookup)
	_, ok := lookup.(*cachedLookup)
	require.False(t, ok)
}
