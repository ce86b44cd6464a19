package weesql

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectOptions tunes the pool behind a connection.
type ConnectOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConnectOptions returns the pool settings used when none are given.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxOpenConns:    10,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Conn is an open database link.
type Conn struct {
	ID     string
	Driver string
	DB     *gorm.DB

	mu      sync.Mutex
	lastErr string
	lastID  int64
	closed  bool
}

// NewConn wraps an already open gorm DB.
func NewConn(driver string, db *gorm.DB) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		Driver: normalizeDriver(driver),
		DB:     db,
	}
}

// LastError returns the last error message recorded on the connection.
func (c *Conn) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastInsertID returns the ID generated by the last successful insert.
func (c *Conn) LastInsertID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastID
}

// Ping checks that the engine is reachable.
func (c *Conn) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying pool. Closing twice is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.lastErr = ""
		return
	}
	if e, ok := err.(*Error); ok {
		c.lastErr = e.Message
		return
	}
	c.lastErr = err.Error()
}

func (c *Conn) setLastID(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID = id
}

func applyConnectOptions(c *Conn, o ConnectOptions) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	if o.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(o.ConnMaxLifetime)
	}
	return nil
}
