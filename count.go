package weesql

import (
	"context"

	"go.uber.org/zap"
)

// wrapCountQuery wraps inner as a derived table and counts its rows.
func wrapCountQuery(inner string) string {
	return "SELECT COUNT(*) AS count FROM (" + inner + ") AS tCount"
}

// count tries the wrapped COUNT(*) first and falls back to enumerating the
// rows of the inner query. When both fail it returns 0 with the fallback error.
func (d *Dispatcher) count(ctx context.Context, conn *Conn, r Count) (Result, error) {
	inner, err := buildSelect(ActionCount, conn.Driver, r.Table, nil, r.Where)
	if err != nil {
		return Result{}, err
	}

	if n, ok := d.countFast(ctx, conn, inner); ok {
		return Result{Int: n, Types: inner.Types}, nil
	}

	rs, err := d.open(ctx, conn, inner)
	if err != nil {
		return Result{Int: 0}, engineError(ActionCount, err)
	}
	defer rs.Close()
	n, err := rs.Len()
	if err != nil {
		return Result{Int: 0}, engineError(ActionCount, err)
	}
	return Result{Int: int64(n), Types: inner.Types}, nil
}

func (d *Dispatcher) countFast(ctx context.Context, conn *Conn, inner statement) (int64, bool) {
	st := statement{SQL: d.wrapCount(inner.SQL), Args: inner.Args, Types: inner.Types}
	rs, err := d.open(ctx, conn, st)
	if err != nil {
		d.log.Debug("count fast path failed, enumerating rows", zap.Error(err))
		return 0, false
	}
	defer rs.Close()
	row, ok := rs.Next()
	if !ok {
		return 0, false
	}
	v, found := row["count"]
	if !found {
		return 0, false
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
