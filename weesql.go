// Package weesql provides a small SQL action dispatcher for Go web applications.
// Every operation is a typed Request (connect, query, add, edit, delete, select,
// count, ...) executed against an explicit or default connection. Values are
// always bound as parameters; MySQL is the primary target, PostgreSQL, SQLite
// and SQL Server are supported through the same gorm driver set.
package weesql

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher routes requests to their SQL behavior.
type Dispatcher struct {
	log     *zap.Logger
	connOpt ConnectOptions

	mu  sync.RWMutex
	def *Conn

	// wrapCount builds the fast count statement around an inner SELECT.
	wrapCount func(inner string) string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithDefault sets the connection used when none is passed.
func WithDefault(c *Conn) Option {
	return func(d *Dispatcher) { d.def = c }
}

// WithConnectOptions sets the pool settings applied to new connections.
func WithConnectOptions(o ConnectOptions) Option {
	return func(d *Dispatcher) { d.connOpt = o }
}

// New creates a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:       zap.NewNop(),
		connOpt:   DefaultConnectOptions(),
		wrapCount: wrapCountQuery,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Default returns the default connection, or nil.
func (d *Dispatcher) Default() *Conn {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.def
}

// SetDefault replaces the default connection.
func (d *Dispatcher) SetDefault(c *Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.def = c
}

// Execute runs req on the default connection.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Result, error) {
	return d.ExecuteOn(ctx, nil, req)
}

// ExecuteOn runs req on conn, falling back to the default connection when conn is nil.
func (d *Dispatcher) ExecuteOn(ctx context.Context, conn *Conn, req Request) (Result, error) {
	if req == nil {
		return Result{}, &Error{Kind: KindInvalid, Message: "nil request"}
	}
	if conn == nil {
		conn = d.Default()
	}
	start := time.Now()
	res, err := d.dispatch(ctx, conn, req)
	res.Action = req.Action()
	if err != nil {
		res = Result{Action: req.Action()}
	}
	d.record(conn, req.Action(), res, err, time.Since(start))
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, conn *Conn, req Request) (Result, error) {
	// Requests that need no live connection.
	switch r := req.(type) {
	case Connect:
		return d.connect(ctx, r)
	case Cleanse:
		return d.cleanse(conn, r), nil
	case IsID:
		return Result{Bool: isNumericID(r.Value)}, nil
	case Fetch:
		return fetch(r)
	case NumRows:
		return numRows(r)
	}

	if conn == nil || conn.isClosed() {
		return Result{}, notConnected(req.Action())
	}

	switch r := req.(type) {
	case LastError:
		return Result{Text: conn.LastError()}, nil
	case Status:
		return d.status(ctx, conn)
	case Disconnect:
		return d.disconnect(conn)
	case Query:
		return d.query(ctx, conn, r)
	case Add:
		return d.add(ctx, conn, r)
	case Edit:
		return d.edit(ctx, conn, r)
	case Delete:
		return d.delete(ctx, conn, r)
	case Select:
		return d.selectOne(ctx, conn, r)
	case Next:
		return d.next(ctx, conn, r)
	case Last:
		return Result{Int: conn.LastInsertID()}, nil
	case Count:
		return d.count(ctx, conn, r)
	default:
		return Result{}, &Error{Kind: KindUnsupported, Action: req.Action(), Message: "unsupported request"}
	}
}

// record stores the outcome on the connection and logs it.
func (d *Dispatcher) record(conn *Conn, action Action, res Result, err error, elapsed time.Duration) {
	if conn != nil && touchesEngine(action) {
		conn.setError(err)
	}
	if err != nil {
		d.log.Warn("action failed",
			zap.Stringer("action", action),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	d.log.Debug("action",
		zap.Stringer("action", action),
		zap.String("types", res.Types),
		zap.Int64("rows_affected", res.RowsAffected),
		zap.Duration("elapsed", elapsed),
	)
}

func touchesEngine(a Action) bool {
	switch a {
	case ActionQuery, ActionAdd, ActionEdit, ActionDelete, ActionSelect,
		ActionNext, ActionCount, ActionStatus:
		return true
	}
	return false
}
