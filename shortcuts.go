package weesql

import "context"

// Connect opens a connection. The first successful connection becomes the default.
func (d *Dispatcher) Connect(ctx context.Context, cfg ConnConfig) (*Conn, error) {
	res, err := d.Execute(ctx, Connect{Config: cfg})
	if err != nil {
		return nil, err
	}
	return res.Conn, nil
}

// Query selects fields from table on the default connection.
// The caller must drain or Close the returned ResultSet.
func (d *Dispatcher) Query(ctx context.Context, table string, fields []string, where Condition) (*ResultSet, error) {
	res, err := d.Execute(ctx, Query{Table: table, Fields: fields, Where: where})
	if err != nil {
		return nil, err
	}
	return res.Set, nil
}

// Add inserts a row and returns its generated ID.
func (d *Dispatcher) Add(ctx context.Context, table string, values map[string]any) (int64, error) {
	res, err := d.Execute(ctx, Add{Table: table, Values: values})
	return res.Int, err
}

// Edit updates the matching rows and returns how many changed.
func (d *Dispatcher) Edit(ctx context.Context, table string, values map[string]any, where Condition) (int64, error) {
	res, err := d.Execute(ctx, Edit{Table: table, Values: values, Where: where})
	return res.RowsAffected, err
}

// Delete removes the matching rows and returns how many were removed.
func (d *Dispatcher) Delete(ctx context.Context, table string, where Condition) (int64, error) {
	res, err := d.Execute(ctx, Delete{Table: table, Where: where})
	return res.RowsAffected, err
}

// Select fetches one row. See Select for the single-field form.
func (d *Dispatcher) Select(ctx context.Context, table, fields string, where Condition) (Result, error) {
	return d.Execute(ctx, Select{Table: table, Fields: fields, Where: where})
}

// Count returns the number of rows matched by where.
func (d *Dispatcher) Count(ctx context.Context, table string, where Condition) (int64, error) {
	res, err := d.Execute(ctx, Count{Table: table, Where: where})
	return res.Int, err
}

// Next returns the table's next auto-increment value.
func (d *Dispatcher) Next(ctx context.Context, table string) (int64, error) {
	res, err := d.Execute(ctx, Next{Table: table})
	return res.Int, err
}

// Last returns the ID generated by the last Add on the default connection.
func (d *Dispatcher) Last(ctx context.Context) (int64, error) {
	res, err := d.Execute(ctx, Last{})
	return res.Int, err
}
