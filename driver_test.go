package weesql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnConfigDSN(t *testing.T) {
	t.Run("mysql", func(t *testing.T) {
		dsn, err := ConnConfig{User: "root", Password: "pw", Database: "app"}.DSN()
		require.NoError(t, err)
		assert.Contains(t, dsn, "root:pw@tcp(127.0.0.1:3306)/app?")
		assert.Contains(t, dsn, "charset=utf8mb4")
		assert.Contains(t, dsn, "parseTime=true")
		assert.Contains(t, dsn, "timeout=1s")
	})

	t.Run("postgres", func(t *testing.T) {
		dsn, err := ConnConfig{Driver: "pg", Host: "db", User: "u", Password: "p", Database: "app", Timeout: 5 * time.Second}.DSN()
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@db:5432/app?client_encoding=UTF8&connect_timeout=5&sslmode=disable", dsn)
	})

	t.Run("sqlite requires a path", func(t *testing.T) {
		_, err := ConnConfig{Driver: DriverSQLite}.DSN()
		assert.Error(t, err)

		dsn, err := ConnConfig{Driver: DriverSQLite, Database: "/tmp/x.db"}.DSN()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/x.db", dsn)
	})

	t.Run("sqlserver", func(t *testing.T) {
		dsn, err := ConnConfig{Driver: "mssql", User: "sa", Password: "p", Database: "app"}.DSN()
		require.NoError(t, err)
		assert.Contains(t, dsn, "sqlserver://sa:p@127.0.0.1:1433?")
		assert.Contains(t, dsn, "database=app")
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := ConnConfig{Driver: "oracle"}.DSN()
		assert.Error(t, err)
	})
}

func TestConnConfigDefaults(t *testing.T) {
	c := ConnConfig{}.withDefaults()
	assert.Equal(t, DriverMySQL, c.Driver)
	assert.Equal(t, "127.0.0.1", c.Host)
	assert.Equal(t, 3306, c.Port)
	assert.Equal(t, defaultCharset, c.Charset)
	assert.Equal(t, time.Second, c.Timeout)
}

func TestDriverRegistry(t *testing.T) {
	r := NewDriverRegistry([]string{"pg", " MySQL ", "", "mssql"})
	assert.Equal(t, []string{DriverMySQL, DriverPostgres, DriverSQLServer}, r.List())
	assert.True(t, r.IsEnabled("postgres"))
	assert.True(t, r.IsEnabled("pg"))
	assert.True(t, r.IsEnabled(""), "empty means mysql")
	assert.False(t, r.IsEnabled(DriverSQLite))

	assert.False(t, NewDriverRegistry(nil).IsEnabled(DriverMySQL))
}
