package weesql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dracory/weesql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, d *weesql.Dispatcher, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := d.Add(context.Background(), "users", map[string]any{"name": name})
		require.NoError(t, err)
	}
}

func TestResultSetLenKeepsRows(t *testing.T) {
	d, _ := setupDispatcher(t)
	seedUsers(t, d, "a", "b", "c")

	rs, err := d.Query(context.Background(), "users", []string{"name"}, weesql.Where("ORDER BY users_id"))
	require.NoError(t, err)
	defer rs.Close()

	first, ok := rs.Next()
	require.True(t, ok)
	assert.Equal(t, "a", first["name"])

	n, err := rs.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rest, err := rs.All()
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "b", rest[0]["name"])
	assert.Equal(t, "c", rest[1]["name"])

	// Len is stable once everything was read.
	n, err = rs.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestResultSetEachStopsEarly(t *testing.T) {
	d, _ := setupDispatcher(t)
	seedUsers(t, d, "a", "b", "c")

	rs, err := d.Query(context.Background(), "users", nil, weesql.Condition{})
	require.NoError(t, err)

	stop := errors.New("stop")
	seen := 0
	err = rs.Each(func(weesql.Row) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)

	_, ok := rs.Next()
	assert.False(t, ok, "Each must close the result")
	assert.NoError(t, rs.Close())
}

func TestResultSetEmpty(t *testing.T) {
	d, _ := setupDispatcher(t)

	rs, err := d.Query(context.Background(), "users", nil, weesql.Condition{})
	require.NoError(t, err)
	defer rs.Close()

	assert.Equal(t, []string{"users_id", "name", "age"}, rs.Columns())
	n, err := rs.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
	_, ok := rs.Next()
	assert.False(t, ok)
}

func TestResultSetNil(t *testing.T) {
	var rs *weesql.ResultSet
	n, err := rs.Len()
	assert.NoError(t, err)
	assert.Zero(t, n)
	_, ok := rs.Next()
	assert.False(t, ok)
	assert.Nil(t, rs.Columns())
	assert.NoError(t, rs.Err())
	assert.NoError(t, rs.Close())
}
