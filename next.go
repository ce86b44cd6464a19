package weesql

import (
	"context"
	"strings"
)

// next returns the value the table's auto-increment key will take next.
func (d *Dispatcher) next(ctx context.Context, conn *Conn, r Next) (Result, error) {
	if err := checkTable(ActionNext, r.Table); err != nil {
		return Result{}, err
	}
	var (
		n   int64
		err error
	)
	switch conn.Driver {
	case DriverMySQL:
		n, err = d.nextMySQL(ctx, conn, r.Table)
	case DriverSQLite:
		n, err = d.nextSQLite(ctx, conn, r.Table)
	case DriverPostgres:
		n, err = d.scalarInt(ctx, conn, newStatement(
			"SELECT COALESCE(MAX("+quoteIdent(conn.Driver, primaryKey(r.Table))+"), 0) + 1 FROM "+quoteIdent(conn.Driver, r.Table), nil))
	case DriverSQLServer:
		n, err = d.scalarInt(ctx, conn, newStatement(
			"SELECT CAST(COALESCE(IDENT_CURRENT(?) + IDENT_INCR(?), 1) AS BIGINT)", []any{r.Table, r.Table}))
	default:
		return Result{}, &Error{Kind: KindUnsupported, Action: ActionNext, Message: "unsupported driver: " + conn.Driver}
	}
	if err != nil {
		return Result{}, engineError(ActionNext, err)
	}
	return Result{Int: n}, nil
}

// nextMySQL reads Auto_increment from SHOW TABLE STATUS, looking in the
// table's schema when it is qualified.
func (d *Dispatcher) nextMySQL(ctx context.Context, conn *Conn, table string) (int64, error) {
	rs, err := d.open(ctx, conn, tableStatusQuery(table))
	if err != nil {
		return 0, err
	}
	defer rs.Close()
	row, ok := rs.Next()
	if !ok {
		if err := rs.Err(); err != nil {
			return 0, err
		}
		return 0, invalidf(ActionNext, "table not found: %s", table)
	}
	return toInt64(row["Auto_increment"])
}

// nextSQLite takes the larger of the AUTOINCREMENT sequence and MAX(rowid).
func (d *Dispatcher) nextSQLite(ctx context.Context, conn *Conn, table string) (int64, error) {
	maxRow, err := d.scalarInt(ctx, conn, newStatement(
		"SELECT COALESCE(MAX(rowid), 0) FROM "+quoteIdent(conn.Driver, table), nil))
	if err != nil {
		return 0, err
	}
	// sqlite_sequence only exists once an AUTOINCREMENT table was created.
	seq, err := d.scalarInt(ctx, conn, newStatement(
		"SELECT COALESCE(MAX(seq), 0) FROM sqlite_sequence WHERE name = ?", []any{table}))
	if err != nil {
		seq = 0
	}
	return max(maxRow, seq) + 1, nil
}

func (d *Dispatcher) scalarInt(ctx context.Context, conn *Conn, st statement) (int64, error) {
	var v any
	if err := conn.DB.WithContext(ctx).Raw(st.SQL, st.Args...).Row().Scan(&v); err != nil {
		return 0, err
	}
	return toInt64(v)
}

// tableStatusQuery matches table by its exact name.
func tableStatusQuery(table string) statement {
	q := "SHOW TABLE STATUS"
	name := table
	if i := strings.LastIndex(table, "."); i >= 0 {
		q += " FROM " + quoteIdent(DriverMySQL, table[:i])
		name = table[i+1:]
	}
	return newStatement(q+" LIKE ?", []any{likeLiteral(name)})
}

// likeLiteral escapes the LIKE wildcards so s only matches itself.
func likeLiteral(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
