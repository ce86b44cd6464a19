package weesql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
)

// ErrorKind classifies dispatcher failures.
type ErrorKind int

const (
	// KindInvalid is a malformed request (missing table, bad identifier, ...).
	KindInvalid ErrorKind = iota + 1
	// KindNotConnected means no connection was given and no default is set.
	KindNotConnected
	// KindConnection is a failure to open or reach the engine.
	KindConnection
	// KindQuery is an engine error while running a statement.
	KindQuery
	// KindConstraint is a uniqueness, foreign key or not-null violation.
	KindConstraint
	// KindUnsupported is a driver or action the dispatcher does not handle.
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotConnected:
		return "not_connected"
	case KindConnection:
		return "connection"
	case KindQuery:
		return "query"
	case KindConstraint:
		return "constraint"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is returned by every failing action.
// Message carries the engine's raw error text when the failure came from the engine.
type Error struct {
	Kind    ErrorKind
	Action  Action
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("weesql: %s: %s", e.Action, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a dispatcher *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func invalidf(action Action, format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Action: action, Message: fmt.Sprintf(format, args...)}
}

func notConnected(action Action) *Error {
	return &Error{Kind: KindNotConnected, Action: action, Message: "not connected to database"}
}

// engineError wraps a driver error, keeping its raw message.
func engineError(action Action, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	kind := KindQuery
	if isConstraintViolation(err) {
		kind = KindConstraint
	}
	return &Error{Kind: kind, Action: action, Message: err.Error(), Err: err}
}

// isConstraintViolation recognizes integrity errors across the supported drivers.
func isConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1048, 1062, 1216, 1217, 1451, 1452, 1557, 1586:
			return true
		}
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 515, 547, 2601, 2627:
			return true
		}
	}
	return false
}
