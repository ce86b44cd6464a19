package weesql

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func (d *Dispatcher) connect(ctx context.Context, r Connect) (Result, error) {
	cfg := r.Config.withDefaults()
	dsn, err := cfg.DSN()
	if err != nil {
		return Result{}, &Error{Kind: KindUnsupported, Action: ActionConnect, Message: err.Error(), Err: err}
	}
	db, err := openGORM(cfg.Driver, dsn, newGormLogger(d.log))
	if err != nil {
		return Result{}, &Error{Kind: KindConnection, Action: ActionConnect, Message: err.Error(), Err: err}
	}
	conn := NewConn(cfg.Driver, db)
	if err := applyConnectOptions(conn, d.connOpt); err != nil {
		_ = conn.Close()
		return Result{}, &Error{Kind: KindConnection, Action: ActionConnect, Message: err.Error(), Err: err}
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return Result{}, &Error{Kind: KindConnection, Action: ActionConnect, Message: err.Error(), Err: err}
	}

	if !r.Detached {
		d.mu.Lock()
		if d.def == nil {
			d.def = conn
		}
		d.mu.Unlock()
	}
	return Result{Conn: conn, Bool: true}, nil
}

func (d *Dispatcher) disconnect(conn *Conn) (Result, error) {
	d.mu.Lock()
	if d.def == conn {
		d.def = nil
	}
	d.mu.Unlock()
	if err := conn.Close(); err != nil {
		return Result{}, &Error{Kind: KindConnection, Action: ActionDisconnect, Message: err.Error(), Err: err}
	}
	return Result{Bool: true}, nil
}

func (d *Dispatcher) status(ctx context.Context, conn *Conn) (Result, error) {
	if err := conn.Ping(ctx); err != nil {
		return Result{}, &Error{Kind: KindConnection, Action: ActionStatus, Message: err.Error(), Err: err}
	}
	return Result{Bool: true}, nil
}

// cleanse escapes with backslashes for MySQL and doubles quotes elsewhere.
func (d *Dispatcher) cleanse(conn *Conn, r Cleanse) Result {
	if conn != nil && conn.Driver != DriverMySQL {
		return Result{Text: strings.ReplaceAll(r.Value, "'", "''")}
	}
	return Result{Text: escapeString(r.Value)}
}

func (d *Dispatcher) query(ctx context.Context, conn *Conn, r Query) (Result, error) {
	st, err := buildSelect(ActionQuery, conn.Driver, r.Table, r.Fields, r.Where)
	if err != nil {
		return Result{}, err
	}
	rs, err := d.open(ctx, conn, st)
	if err != nil {
		return Result{}, engineError(ActionQuery, err)
	}
	return Result{Set: rs, Types: st.Types}, nil
}

func (d *Dispatcher) selectOne(ctx context.Context, conn *Conn, r Select) (Result, error) {
	fields := splitCSV(r.Fields)
	st, err := buildSelect(ActionSelect, conn.Driver, r.Table, fields, r.Where)
	if err != nil {
		return Result{}, err
	}
	rs, err := d.open(ctx, conn, st)
	if err != nil {
		return Result{}, engineError(ActionSelect, err)
	}
	defer rs.Close()

	row, ok := rs.Next()
	if !ok {
		if err := rs.Err(); err != nil {
			return Result{}, engineError(ActionSelect, err)
		}
		return Result{Found: false, Types: st.Types}, nil
	}
	res := Result{Row: row, Found: true, Types: st.Types}
	if len(fields) == 1 && fields[0] != "*" {
		res.Value = row[rs.cols[0]]
	}
	return res, nil
}

func (d *Dispatcher) add(ctx context.Context, conn *Conn, r Add) (Result, error) {
	if err := checkTable(ActionAdd, r.Table); err != nil {
		return Result{}, err
	}
	cols, args, err := sortedValues(ActionAdd, r.Values)
	if err != nil {
		return Result{}, err
	}
	qcols := make([]string, len(cols))
	ph := make([]string, len(cols))
	for i, c := range cols {
		qcols[i] = quoteIdent(conn.Driver, c)
		ph[i] = "?"
	}
	st := newStatement("INSERT INTO "+quoteIdent(conn.Driver, r.Table)+
		" ("+strings.Join(qcols, ", ")+") VALUES ("+strings.Join(ph, ", ")+")", args)

	if conn.Driver == DriverPostgres {
		return d.addReturning(ctx, conn, r.Table, st)
	}

	var affected, id int64
	// The insert and the ID lookup must share one session.
	err = conn.DB.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		res := tx.Exec(st.SQL, st.Args...)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		id = lastInsertID(tx, conn.Driver)
		return nil
	})
	if err != nil {
		return Result{}, engineError(ActionAdd, err)
	}
	conn.setLastID(id)
	return Result{Int: id, RowsAffected: affected, Types: st.Types}, nil
}

// addReturning inserts with RETURNING <table>_id so the ID is the row's own key
// and not the last value of whatever sequence the session touched. Tables
// without that column are inserted again without RETURNING and yield ID 0.
func (d *Dispatcher) addReturning(ctx context.Context, conn *Conn, table string, st statement) (Result, error) {
	var id sql.NullInt64
	err := conn.DB.WithContext(ctx).Raw(returningKey(st.SQL, table), st.Args...).Row().Scan(&id)
	if err == nil {
		conn.setLastID(id.Int64)
		return Result{Int: id.Int64, RowsAffected: 1, Types: st.Types}, nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUndefinedColumn {
		return Result{}, engineError(ActionAdd, err)
	}
	res := conn.DB.WithContext(ctx).Exec(st.SQL, st.Args...)
	if res.Error != nil {
		return Result{}, engineError(ActionAdd, res.Error)
	}
	conn.setLastID(0)
	return Result{RowsAffected: res.RowsAffected, Types: st.Types}, nil
}

func returningKey(insert, table string) string {
	return insert + " RETURNING " + quoteIdent(DriverPostgres, primaryKey(table))
}

// pgUndefinedColumn is SQLSTATE undefined_column.
const pgUndefinedColumn = "42703"

func (d *Dispatcher) edit(ctx context.Context, conn *Conn, r Edit) (Result, error) {
	if err := checkTable(ActionEdit, r.Table); err != nil {
		return Result{}, err
	}
	if !r.Where.restricts() {
		return Result{}, invalidf(ActionEdit, "a WHERE condition is required")
	}
	cols, args, err := sortedValues(ActionEdit, r.Values)
	if err != nil {
		return Result{}, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quoteIdent(conn.Driver, c) + " = ?"
	}
	tail, whereArgs := r.Where.render(conn.Driver, r.Table)
	st := newStatement("UPDATE "+quoteIdent(conn.Driver, r.Table)+" SET "+strings.Join(sets, ", ")+" "+tail,
		append(args, whereArgs...))
	return d.exec(ctx, conn, ActionEdit, st)
}

func (d *Dispatcher) delete(ctx context.Context, conn *Conn, r Delete) (Result, error) {
	if err := checkTable(ActionDelete, r.Table); err != nil {
		return Result{}, err
	}
	if !r.Where.restricts() {
		return Result{}, invalidf(ActionDelete, "a WHERE condition is required")
	}
	tail, args := r.Where.render(conn.Driver, r.Table)
	st := newStatement("DELETE FROM "+quoteIdent(conn.Driver, r.Table)+" "+tail, args)
	return d.exec(ctx, conn, ActionDelete, st)
}

func (d *Dispatcher) exec(ctx context.Context, conn *Conn, action Action, st statement) (Result, error) {
	res := conn.DB.WithContext(ctx).Exec(st.SQL, st.Args...)
	if res.Error != nil {
		return Result{}, engineError(action, res.Error)
	}
	return Result{RowsAffected: res.RowsAffected, Types: st.Types}, nil
}

// open runs a row-returning statement.
func (d *Dispatcher) open(ctx context.Context, conn *Conn, st statement) (*ResultSet, error) {
	rows, err := conn.DB.WithContext(ctx).Raw(st.SQL, st.Args...).Rows()
	if err != nil {
		return nil, err
	}
	return newResultSet(rows)
}

func fetch(r Fetch) (Result, error) {
	row, ok := r.Result.Next()
	if !ok {
		if err := r.Result.Err(); err != nil {
			return Result{}, engineError(ActionArray, err)
		}
		return Result{}, nil
	}
	return Result{Row: row, Found: true}, nil
}

func numRows(r NumRows) (Result, error) {
	n, err := r.Result.Len()
	if err != nil {
		return Result{}, engineError(ActionRows, err)
	}
	return Result{Int: int64(n)}, nil
}

// lastInsertID reads the ID generated by the previous insert on tx's session.
// Tables without a generated key yield 0.
func lastInsertID(tx *gorm.DB, driver string) int64 {
	var q string
	switch driver {
	case DriverMySQL:
		q = "SELECT LAST_INSERT_ID()"
	case DriverSQLite:
		q = "SELECT last_insert_rowid()"
	case DriverSQLServer:
		q = "SELECT CAST(@@IDENTITY AS BIGINT)"
	default:
		return 0
	}
	var id sql.NullInt64
	if err := tx.Raw(q).Row().Scan(&id); err != nil {
		return 0
	}
	return id.Int64
}

// buildSelect renders SELECT <fields> FROM <table> <cond>.
func buildSelect(action Action, driver, table string, fields []string, where Condition) (statement, error) {
	if err := checkTable(action, table); err != nil {
		return statement{}, err
	}
	list, err := fieldList(action, driver, fields)
	if err != nil {
		return statement{}, err
	}
	tail, args := where.render(driver, table)
	q := "SELECT " + list + " FROM " + quoteIdent(driver, table)
	if tail != "" {
		q += " " + tail
	}
	return newStatement(q, args), nil
}

func fieldList(action Action, driver string, fields []string) (string, error) {
	if len(fields) == 0 {
		return "*", nil
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "*" {
			out = append(out, f)
			continue
		}
		if !sanitizeIdent(f) {
			return "", invalidf(action, "invalid field name: %q", f)
		}
		out = append(out, quoteIdent(driver, f))
	}
	return strings.Join(out, ", "), nil
}

func checkTable(action Action, table string) error {
	if table == "" {
		return invalidf(action, "table is required")
	}
	if !sanitizeIdent(table) {
		return invalidf(action, "invalid table name: %q", table)
	}
	return nil
}

// sortedValues returns the columns of values in name order with their values.
func sortedValues(action Action, values map[string]any) ([]string, []any, error) {
	if len(values) == 0 {
		return nil, nil, invalidf(action, "at least one column value is required")
	}
	cols := make([]string, 0, len(values))
	for c := range values {
		if !sanitizeIdent(c) {
			return nil, nil, invalidf(action, "invalid column name: %q", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	return cols, args, nil
}
