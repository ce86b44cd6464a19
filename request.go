package weesql

import (
	"fmt"
	"strings"
	"time"
)

// Action identifies the kind of a Request.
type Action int

const (
	ActionConnect Action = iota + 1
	ActionError
	ActionCleanse
	ActionID
	ActionQuery
	ActionAdd
	ActionEdit
	ActionDelete
	ActionSelect
	ActionNext
	ActionLast
	ActionCount
	ActionArray
	ActionRows
	ActionStatus
	ActionDisconnect
)

var actionNames = map[Action]string{
	ActionConnect:    "connect",
	ActionError:      "error",
	ActionCleanse:    "cleanse",
	ActionID:         "id",
	ActionQuery:      "query",
	ActionAdd:        "add",
	ActionEdit:       "edit",
	ActionDelete:     "delete",
	ActionSelect:     "select",
	ActionNext:       "next",
	ActionLast:       "last",
	ActionCount:      "count",
	ActionArray:      "array",
	ActionRows:       "rows",
	ActionStatus:     "status",
	ActionDisconnect: "disconnect",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction maps an action name to its Action. Matching is case-insensitive.
func ParseAction(name string) (Action, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "fetch":
		return ActionArray, nil
	case "num_rows":
		return ActionRows, nil
	case "is_id":
		return ActionID, nil
	}
	for a, s := range actionNames {
		if s == n {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action: %q", name)
}

// Request is one of the dispatcher's request kinds:
// Connect, LastError, Cleanse, IsID, Query, Add, Edit, Delete, Select,
// Next, Last, Count, Fetch, NumRows, Status or Disconnect.
type Request interface {
	Action() Action
	request()
}

// ConnConfig describes how to reach the engine.
type ConnConfig struct {
	Driver   string        `yaml:"driver"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Database string        `yaml:"database"`
	Charset  string        `yaml:"charset"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Connect opens a new connection. Unless Detached, the first connection
// opened becomes the dispatcher default.
type Connect struct {
	Config   ConnConfig
	Detached bool
}

// LastError returns the last error recorded on the connection.
type LastError struct{}

// Cleanse escapes a value for use inside a quoted SQL string literal.
type Cleanse struct{ Value string }

// IsID reports whether Value looks like a row identifier.
type IsID struct{ Value any }

// Query selects rows and returns an open ResultSet.
type Query struct {
	Table  string
	Fields []string
	Where  Condition
}

// Add inserts one row.
type Add struct {
	Table  string
	Values map[string]any
}

// Edit updates the rows matched by Where.
type Edit struct {
	Table  string
	Values map[string]any
	Where  Condition
}

// Delete removes the rows matched by Where.
type Delete struct {
	Table string
	Where Condition
}

// Select fetches a single row, or a single field of it when Fields names one column.
type Select struct {
	Table  string
	Fields string
	Where  Condition
}

// Next returns the table's next auto-increment value.
type Next struct{ Table string }

// Last returns the ID generated by the last Add on the connection.
type Last struct{}

// Count returns the number of rows matched by Where.
type Count struct {
	Table string
	Where Condition
}

// Fetch advances Result and returns its next row.
type Fetch struct{ Result *ResultSet }

// NumRows returns the total number of rows of Result.
type NumRows struct{ Result *ResultSet }

// Status pings the connection.
type Status struct{}

// Disconnect closes the connection.
type Disconnect struct{}

func (Connect) Action() Action    { return ActionConnect }
func (LastError) Action() Action  { return ActionError }
func (Cleanse) Action() Action    { return ActionCleanse }
func (IsID) Action() Action       { return ActionID }
func (Query) Action() Action      { return ActionQuery }
func (Add) Action() Action        { return ActionAdd }
func (Edit) Action() Action       { return ActionEdit }
func (Delete) Action() Action     { return ActionDelete }
func (Select) Action() Action     { return ActionSelect }
func (Next) Action() Action       { return ActionNext }
func (Last) Action() Action       { return ActionLast }
func (Count) Action() Action      { return ActionCount }
func (Fetch) Action() Action      { return ActionArray }
func (NumRows) Action() Action    { return ActionRows }
func (Status) Action() Action     { return ActionStatus }
func (Disconnect) Action() Action { return ActionDisconnect }

func (Connect) request()    {}
func (LastError) request()  {}
func (Cleanse) request()    {}
func (IsID) request()       {}
func (Query) request()      {}
func (Add) request()        {}
func (Edit) request()       {}
func (Delete) request()     {}
func (Select) request()     {}
func (Next) request()       {}
func (Last) request()       {}
func (Count) request()      {}
func (Fetch) request()      {}
func (NumRows) request()    {}
func (Status) request()     {}
func (Disconnect) request() {}
