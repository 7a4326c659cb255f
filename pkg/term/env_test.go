package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type token struct {
	ID     int
	Labels []string
	inner  *int
}

func TestEnvCopyIsIndependent(t *testing.T) {
	env := NewEnv(nil)

	original := map[string]any{
		"id":    1,
		"bytes": []byte("abc"),
		"list":  []any{"x", []int{1, 2}},
	}
	copied := env.Copy(original).(map[string]any)
	require.Equal(t, original, copied)

	original["id"] = 2
	original["bytes"].([]byte)[0] = 'z'
	original["list"].([]any)[1].([]int)[0] = 42

	assert.Equal(t, 1, copied["id"])
	assert.Equal(t, []byte("abc"), copied["bytes"])
	assert.Equal(t, []int{1, 2}, copied["list"].([]any)[1])
}

func TestEnvCopyStructs(t *testing.T) {
	env := NewEnv(nil)
	n := 7
	original := &token{ID: 1, Labels: []string{"a"}, inner: &n}

	copied := env.Copy(original).(*token)
	require.NotSame(t, original, copied)
	original.Labels[0] = "b"

	assert.Equal(t, 1, copied.ID)
	assert.Equal(t, []string{"a"}, copied.Labels)
	// unexported fields are shared
	assert.Same(t, original.inner, copied.inner)
}

type node struct {
	Name string
	Next *node
}

func TestEnvCopyCycles(t *testing.T) {
	env := NewEnv(nil)

	n := &node{Name: "a"}
	n.Next = &node{Name: "b", Next: n}
	copied := env.Copy(n).(*node)
	require.NotSame(t, n, copied)
	require.NotSame(t, n.Next, copied.Next)
	assert.Same(t, copied, copied.Next.Next)
	assert.Equal(t, "b", copied.Next.Name)

	m := map[string]any{"id": 1}
	m["self"] = m
	cm := env.Copy(m).(map[string]any)
	m["id"] = 2
	assert.Equal(t, 1, cm["id"])
	assert.Equal(t, 1, cm["self"].(map[string]any)["id"])

	l := []any{"x", nil}
	l[1] = l
	cl := env.Copy(l).([]any)
	l[0] = "y"
	assert.Equal(t, "x", cl[0])
	assert.Equal(t, "x", cl[1].([]any)[0])
}

func TestEnvCopySharedValues(t *testing.T) {
	env := NewEnv(nil)
	shared := &node{Name: "shared"}
	pair := []*node{shared, shared}

	copied := env.Copy(pair).([]*node)
	require.NotSame(t, shared, copied[0])
	assert.Same(t, copied[0], copied[1])
}

func TestEnvCopyScalars(t *testing.T) {
	env := NewEnv(nil)
	for _, v := range []Term{nil, 1, "str", 3.5, true, MakeRef()} {
		assert.Equal(t, v, env.Copy(v))
	}
}

func TestEnvFreeTracking(t *testing.T) {
	var stats Stats

	a := NewEnv(&stats)
	b := NewEnv(&stats)
	require.Equal(t, int64(2), stats.Live())

	require.True(t, a.Free())
	require.False(t, a.Free())
	require.True(t, a.Freed())
	require.False(t, b.Freed())

	assert.Equal(t, int64(1), stats.Live())
	assert.Equal(t, int64(1), stats.DoubleFrees())

	require.True(t, b.Free())
	assert.Equal(t, int64(0), stats.Live())
	assert.Equal(t, int64(2), stats.Allocated())
	assert.Equal(t, int64(2), stats.Freed())
}

func TestMakeRefIsUnique(t *testing.T) {
	seen := map[Ref]struct{}{}
	for i := 0; i < 100; i++ {
		r := MakeRef()
		_, ok := seen[r]
		require.False(t, ok)
		seen[r] = struct{}{}
	}
}
