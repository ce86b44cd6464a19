package weesql

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Bind type tags, one per bound value.
const (
	BindInt    = 'i'
	BindDouble = 'd'
	BindBlob   = 'b'
	BindString = 's'
)

// statement is a parameterized SQL text ready to run.
type statement struct {
	SQL   string
	Args  []any
	Types string
}

func newStatement(sql string, args []any) statement {
	types, bound := bindSignature(args)
	return statement{SQL: sql, Args: bound, Types: types}
}

// bindSignature tags every value and returns the values to bind.
// Strings whose text is a canonical integer or float are bound as numbers;
// strings that are not valid UTF-8 are bound as blobs.
func bindSignature(args []any) (string, []any) {
	if len(args) == 0 {
		return "", nil
	}
	var sig strings.Builder
	out := make([]any, len(args))
	for i, a := range args {
		tag, v := bindType(a)
		sig.WriteByte(tag)
		out[i] = v
	}
	return sig.String(), out
}

func bindType(v any) (byte, any) {
	switch n := v.(type) {
	case nil:
		return BindString, nil
	case bool:
		if n {
			return BindInt, int64(1)
		}
		return BindInt, int64(0)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return BindInt, n
	case float32, float64:
		return BindDouble, n
	case []byte:
		return BindBlob, n
	case string:
		return bindString(n)
	default:
		return BindString, v
	}
}

func bindString(s string) (byte, any) {
	if !utf8.ValidString(s) {
		return BindBlob, []byte(s)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(i, 10) == s {
		return BindInt, i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsRune(s, '.') &&
		strconv.FormatFloat(f, 'f', -1, 64) == s {
		return BindDouble, f
	}
	return BindString, s
}
