package weesql

import "database/sql"

// Row is one result row keyed by column name.
type Row map[string]any

// ResultSet is a cursor over the rows of a query.
// It closes itself once exhausted; callers that stop early must call Close
// or iterate with Each, which always closes.
type ResultSet struct {
	rows   *sql.Rows
	cols   []string
	buf    []Row
	served int
	closed bool
	err    error
}

func newResultSet(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &ResultSet{rows: rows, cols: cols}, nil
}

// Columns returns the column names of the result.
func (rs *ResultSet) Columns() []string {
	if rs == nil {
		return nil
	}
	return rs.cols
}

// Next returns the next row. ok is false once the result is exhausted,
// closed or failed; check Err to tell them apart.
func (rs *ResultSet) Next() (Row, bool) {
	if rs == nil {
		return nil, false
	}
	if len(rs.buf) > 0 {
		row := rs.buf[0]
		rs.buf = rs.buf[1:]
		rs.served++
		return row, true
	}
	row, ok := rs.read()
	if ok {
		rs.served++
	}
	return row, ok
}

// Len returns the total number of rows in the result, including rows already
// returned by Next. Remaining rows are buffered so Next keeps serving them.
func (rs *ResultSet) Len() (int, error) {
	if rs == nil {
		return 0, nil
	}
	for {
		row, ok := rs.read()
		if !ok {
			break
		}
		rs.buf = append(rs.buf, row)
	}
	return rs.served + len(rs.buf), rs.err
}

// Each calls fn for every remaining row and closes the result on every path.
func (rs *ResultSet) Each(fn func(Row) error) error {
	if rs == nil {
		return nil
	}
	defer rs.Close()
	for {
		row, ok := rs.Next()
		if !ok {
			return rs.err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// All returns every remaining row and closes the result.
func (rs *ResultSet) All() ([]Row, error) {
	var out []Row
	err := rs.Each(func(r Row) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

// Err returns the error, if any, that stopped iteration.
func (rs *ResultSet) Err() error {
	if rs == nil {
		return nil
	}
	return rs.err
}

// Close releases the underlying rows. It is safe to call more than once.
func (rs *ResultSet) Close() error {
	if rs == nil || rs.closed {
		return nil
	}
	rs.closed = true
	return rs.rows.Close()
}

// read pulls one row from the driver, closing the rows when none are left.
func (rs *ResultSet) read() (Row, bool) {
	if rs.closed {
		return nil, false
	}
	if !rs.rows.Next() {
		if err := rs.rows.Err(); err != nil {
			rs.err = err
		}
		_ = rs.Close()
		return nil, false
	}
	row, err := scanRow(rs.rows, rs.cols)
	if err != nil {
		rs.err = err
		_ = rs.Close()
		return nil, false
	}
	return row, true
}

// scanRow scans the current row into a Row; []byte values become strings.
func scanRow(rows *sql.Rows, cols []string) (Row, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(Row, len(cols))
	for i, c := range cols {
		if b, ok := vals[i].([]byte); ok {
			row[c] = string(b)
			continue
		}
		row[c] = vals[i]
	}
	return row, nil
}
