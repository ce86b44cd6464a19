package weesql

// Result is the outcome of a successful action. Which fields are set
// depends on Action:
//
//	connect           Conn
//	error, cleanse    Text
//	id, status        Bool
//	query             Set (caller owns it and must drain or Close it)
//	add               Int (generated ID), RowsAffected
//	edit, delete      RowsAffected
//	select            Row, or Value for a single field; Found
//	next, last, count Int
//	array             Row, Found
//	rows              Int
type Result struct {
	Action       Action
	Conn         *Conn
	Set          *ResultSet
	Row          Row
	Value        any
	Int          int64
	Text         string
	Bool         bool
	Found        bool
	RowsAffected int64
	// Types is the bind-type signature of the statement that ran, if any.
	Types string
}
