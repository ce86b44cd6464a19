package weesql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

// newSQLiteDispatcher returns a dispatcher whose default connection is a fresh
// SQLite file holding an empty users table.
func newSQLiteDispatcher(t *testing.T) (*Dispatcher, *Conn) {
	t.Helper()
	d := New()
	conn, err := d.Connect(context.Background(), ConnConfig{
		Driver:   DriverSQLite,
		Database: filepath.Join(t.TempDir(), "weesql.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.DB.Exec(`CREATE TABLE users (
		users_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		age INTEGER
	)`).Error)
	return d, conn
}
