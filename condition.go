package weesql

import (
	"regexp"
	"strconv"
	"strings"
)

// Condition restricts the rows an action works on.
// The zero Condition matches every row.
type Condition struct {
	id     any
	clause string
	args   []any
}

// ByID matches the row whose primary key <table>_id equals id.
func ByID(id any) Condition {
	return Condition{id: id}
}

// Where builds a condition from a clause fragment with ? placeholders.
// The fragment may start with WHERE, ORDER BY, GROUP BY, HAVING or LIMIT;
// anything else is treated as a WHERE expression.
func Where(clause string, args ...any) Condition {
	return Condition{clause: strings.TrimSpace(clause), args: args}
}

// Cond builds a condition from a loosely typed value. Every numeric value
// (any int, uint or float kind, or a string holding a number) becomes ByID,
// other strings become Where clauses and a Condition is returned as is.
// Values of any other type match no row.
func Cond(v any, args ...any) Condition {
	switch c := v.(type) {
	case nil:
		return Condition{}
	case Condition:
		return c
	case string:
		if s := strings.TrimSpace(c); numericText.MatchString(s) {
			return ByID(s)
		}
		return Where(c, args...)
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return ByID(c)
	}
	return matchNone
}

// matchNone is a condition no row satisfies.
var matchNone = Condition{clause: "WHERE 1 = 0"}

var numericText = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// IsZero reports whether the condition matches every row.
func (c Condition) IsZero() bool {
	return c.id == nil && c.clause == ""
}

// render returns the SQL tail for table and its bound arguments.
func (c Condition) render(driver, table string) (string, []any) {
	if c.id != nil {
		return "WHERE " + quoteIdent(driver, primaryKey(table)) + " = ?", []any{c.id}
	}
	if c.clause == "" {
		return "", nil
	}
	if leadingKeyword(c.clause) != "" {
		return c.clause, c.args
	}
	return "WHERE " + c.clause, c.args
}

// restricts reports whether the rendered tail starts with a WHERE, so the
// statement cannot reach rows the caller did not select.
func (c Condition) restricts() bool {
	if c.id != nil {
		return true
	}
	if c.clause == "" {
		return false
	}
	kw := leadingKeyword(c.clause)
	return kw == "" || kw == "WHERE"
}

var clauseKeyword = regexp.MustCompile(`(?i)^(WHERE|ORDER\s+BY|GROUP\s+BY|HAVING|LIMIT)\s`)

// leadingKeyword returns the upper-cased first word of a leading clause
// keyword (WHERE, ORDER, GROUP, HAVING or LIMIT), or "" when there is none.
func leadingKeyword(s string) string {
	m := clauseKeyword.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToUpper(strings.Fields(m[1])[0])
}

// primaryKey returns the primary key column name of table, e.g. user_id for user.
// A schema qualifier is dropped.
func primaryKey(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		table = table[i+1:]
	}
	return table + "_id"
}

// isNumericID reports whether v is a positive integer, or a string holding one.
func isNumericID(v any) bool {
	switch n := v.(type) {
	case int:
		return n > 0
	case int8:
		return n > 0
	case int16:
		return n > 0
	case int32:
		return n > 0
	case int64:
		return n > 0
	case uint:
		return n > 0
	case uint8:
		return n > 0
	case uint16:
		return n > 0
	case uint32:
		return n > 0
	case uint64:
		return n > 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" || s[0] == '+' || s[0] == '-' {
			return false
		}
		id, err := strconv.ParseUint(s, 10, 64)
		return err == nil && id > 0
	}
	return false
}
