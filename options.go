package weesql

// Options configures the HTTP action handler.
type Options struct {
	// EnabledDrivers lists the drivers the connect action accepts
	// (default: mysql, postgres, sqlserver; sqlite must be enabled explicitly)
	EnabledDrivers []string

	// AllowAdHocConnections allows clients to open their own connection with the connect action
	AllowAdHocConnections bool

	// SafeModeDefault requires confirm=yes for edit and delete
	SafeModeDefault bool

	// ReadOnlyMode rejects add, edit and delete regardless of DB grants
	ReadOnlyMode bool

	// ActionParam is the query param that selects behavior (default: "action")
	ActionParam string

	// BasePath is the mount path for the handler (for generating links), e.g. "/db"
	BasePath string

	// SessionSecret keys the CSRF token derivation
	SessionSecret string

	// MaxRows caps the rows returned by the query action (default: 200)
	MaxRows int
}

// withDefaults applies default values to Options.
func (o Options) withDefaults() Options {
	if o.ActionParam == "" {
		o.ActionParam = "action"
	}
	if o.BasePath == "" {
		o.BasePath = "/db"
	}
	if o.SessionSecret == "" {
		o.SessionSecret = "dev-insecure-change-me"
	}
	if len(o.EnabledDrivers) == 0 {
		o.EnabledDrivers = defaultEnabledDrivers()
	}
	if o.MaxRows <= 0 {
		o.MaxRows = 200
	}
	return o
}

// defaultEnabledDrivers leaves out sqlite, whose "database" is a path on the server.
func defaultEnabledDrivers() []string {
	return []string{DriverMySQL, DriverPostgres, DriverSQLServer}
}
