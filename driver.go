package weesql

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gormmysql "gorm.io/driver/mysql"
	gormpg "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	gormsqlserver "gorm.io/driver/sqlserver"
)

// Supported database drivers.
const (
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
	DriverSQLServer = "sqlserver"
)

const (
	defaultCharset = "utf8mb4"
	defaultTimeout = time.Second
)

// withDefaults fills the charset, timeout, port and driver.
func (c ConnConfig) withDefaults() ConnConfig {
	c.Driver = normalizeDriver(c.Driver)
	if c.Charset == "" {
		c.Charset = defaultCharset
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		switch c.Driver {
		case DriverMySQL:
			c.Port = 3306
		case DriverPostgres:
			c.Port = 5432
		case DriverSQLServer:
			c.Port = 1433
		}
	}
	return c
}

// DSN builds the driver specific data source name.
func (c ConnConfig) DSN() (string, error) {
	c = c.withDefaults()
	addr := c.Host + ":" + strconv.Itoa(c.Port)
	switch c.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = c.Database
		cfg.Timeout = c.Timeout
		cfg.ParseTime = true
		cfg.Params = map[string]string{"charset": c.Charset}
		return cfg.FormatDSN(), nil

	case DriverPostgres:
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   addr,
			Path:   "/" + c.Database,
		}
		q := url.Values{}
		q.Set("sslmode", "disable")
		q.Set("connect_timeout", strconv.Itoa(timeoutSeconds(c.Timeout)))
		q.Set("client_encoding", pgEncoding(c.Charset))
		u.RawQuery = q.Encode()
		return u.String(), nil

	case DriverSQLite:
		if c.Database == "" {
			return "", fmt.Errorf("sqlite requires a database path")
		}
		return c.Database, nil

	case DriverSQLServer:
		u := &url.URL{
			Scheme: "sqlserver",
			User:   url.UserPassword(c.User, c.Password),
			Host:   addr,
		}
		q := url.Values{}
		if c.Database != "" {
			q.Set("database", c.Database)
		}
		q.Set("dial timeout", strconv.Itoa(timeoutSeconds(c.Timeout)))
		u.RawQuery = q.Encode()
		return u.String(), nil

	default:
		return "", fmt.Errorf("unsupported driver: %s", c.Driver)
	}
}

// openGORM opens a GORM DB for the given driver and DSN.
func openGORM(driver, dsn string, l logger.Interface) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: l}
	switch normalizeDriver(driver) {
	case DriverMySQL:
		return gorm.Open(gormmysql.Open(dsn), cfg)
	case DriverPostgres:
		return gorm.Open(gormpg.Open(dsn), cfg)
	case DriverSQLite:
		return gorm.Open(gormsqlite.Open(dsn), cfg)
	case DriverSQLServer:
		return gorm.Open(gormsqlserver.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

func timeoutSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

func pgEncoding(charset string) string {
	switch charset {
	case "utf8", "utf8mb4":
		return "UTF8"
	default:
		return charset
	}
}

// DriverRegistry tracks the drivers a client may connect with.
type DriverRegistry struct {
	enabled map[string]struct{}
}

// NewDriverRegistry builds a registry from driver names; aliases are normalized.
func NewDriverRegistry(enabled []string) *DriverRegistry {
	m := make(map[string]struct{}, len(enabled))
	for _, n := range enabled {
		if strings.TrimSpace(n) == "" {
			continue
		}
		m[normalizeDriver(n)] = struct{}{}
	}
	return &DriverRegistry{enabled: m}
}

// IsEnabled reports whether name, or the driver it is an alias of, is enabled.
func (r *DriverRegistry) IsEnabled(name string) bool {
	_, ok := r.enabled[normalizeDriver(name)]
	return ok
}

// List returns the enabled driver names in order.
func (r *DriverRegistry) List() []string {
	out := make([]string, 0, len(r.enabled))
	for n := range r.enabled {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func isKnownDriver(name string) bool {
	switch normalizeDriver(name) {
	case DriverMySQL, DriverPostgres, DriverSQLite, DriverSQLServer:
		return true
	}
	return false
}
