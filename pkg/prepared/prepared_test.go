package prepared

import (
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/cassbridge/pkg/driver/drivertest"
	"github.com/grafana/cassbridge/pkg/schema"
)

func testColumns() *schema.ColumnsMap {
	return schema.NewColumnsMap("ks", "users", []schema.Column{
		{Name: "id", Type: "int"},
		{Name: "name", Type: "varchar"},
	})
}

func TestWrap(t *testing.T) {
	p := drivertest.NewPrepared("SELECT * FROM users WHERE id = ?", "ks", "users")
	columns := testColumns()

	stmt, err := Wrap(p, gocql.Two, columns)
	require.NoError(t, err)
	assert.Equal(t, gocql.Two, stmt.Consistency())
	assert.Equal(t, "ks", stmt.Keyspace())
	assert.Equal(t, "users", stmt.Table())
	assert.Same(t, columns, stmt.Columns())
	assert.Equal(t, `ks.users [TWO] "SELECT * FROM users WHERE id = ?"`, stmt.String())

	stmt.Close()
	stmt.Close()
	assert.Equal(t, 1, p.Frees())
	assert.True(t, columns.Released())
}

func TestWrapFailures(t *testing.T) {
	p := drivertest.NewPrepared("SELECT 1", "ks", "t")

	_, err := Wrap(nil, gocql.One, testColumns())
	require.ErrorIs(t, err, ErrNoPrepared)

	_, err = Wrap(p, gocql.One, nil)
	require.ErrorIs(t, err, ErrNoColumns)

	columns := testColumns()
	_, err = Wrap(p, gocql.Consistency(99), columns)
	require.ErrorIs(t, err, ErrInvalidConsistency)

	// ownership stays with the caller
	assert.Equal(t, 0, p.Frees())
	assert.False(t, columns.Released())
}

func TestBind(t *testing.T) {
	stmt, err := Wrap(drivertest.NewPrepared("INSERT INTO users (id, name) VALUES (?, ?)", "ks", "users"), gocql.Quorum, testColumns())
	require.NoError(t, err)

	bound, err := stmt.Bind(1, "alice")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (id, name) VALUES (?, ?)", bound.Query)
	assert.Equal(t, []any{1, "alice"}, bound.Values)
	assert.Equal(t, gocql.Quorum, bound.Consistency)
	assert.Equal(t, "users", bound.Table)

	bound, err = stmt.BindNamed([]string{"id", "name"}, map[string]any{"name": "bob", "id": 2})
	require.NoError(t, err)
	assert.Equal(t, []any{2, "bob"}, bound.Values)

	_, err = stmt.BindNamed([]string{"age"}, map[string]any{"age": 3})
	require.Error(t, err)
	_, err = stmt.BindNamed([]string{"id"}, map[string]any{})
	require.Error(t, err)

	stmt.Close()
	_, err = stmt.Bind(1, "alice")
	require.ErrorIs(t, err, ErrClosed)
}

func TestValidConsistency(t *testing.T) {
	for _, c := range []gocql.Consistency{gocql.Any, gocql.One, gocql.Two, gocql.Three, gocql.Quorum, gocql.All, gocql.LocalQuorum, gocql.EachQuorum, gocql.LocalOne} {
		assert.True(t, ValidConsistency(c), c.String())
	}
	assert.True(t, ValidConsistency(gocql.Consistency(gocql.Serial)))
	assert.True(t, ValidConsistency(gocql.Consistency(gocql.LocalSerial)))
	assert.False(t, ValidConsistency(gocql.Consistency(0x0B)))
	assert.False(t, ValidConsistency(gocql.Consistency(99)))
}
