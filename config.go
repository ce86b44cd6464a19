package weesql

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dracory/env"
	"gopkg.in/yaml.v3"
)

// Config holds the process configuration: the HTTP surface and the default connection.
type Config struct {
	HTTPPort      int    `yaml:"http_port"`
	BasePath      string `yaml:"base_path"`
	ActionParam   string `yaml:"action_param"`
	SessionSecret string `yaml:"session_secret"`

	// SafeModeDefault requires confirm=yes for edit and delete.
	SafeModeDefault bool `yaml:"safe_mode"`
	// ReadOnlyMode blocks add, edit and delete.
	ReadOnlyMode bool `yaml:"read_only"`

	// AllowAdHocConnections lets HTTP clients open their own connection.
	AllowAdHocConnections bool `yaml:"allow_adhoc_connections"`
	// EnabledDrivers limits the drivers those connections may use.
	EnabledDrivers []string `yaml:"enabled_drivers"`

	// Database is the default connection opened at startup.
	Database ConnConfig `yaml:"database"`
}

// LoadConfig reads the environment (and a .env file when present) with defaults.
func LoadConfig() (Config, error) {
	var cfg Config

	// Missing files are ignored inside the lib
	env.Load(".env")

	cfg.HTTPPort = env.GetIntOrDefault("HTTP_PORT", 8080)
	cfg.BasePath = env.GetStringOrDefault("BASE_URL", "/")
	cfg.ActionParam = env.GetStringOrDefault("ACTION_PARAM", "action")
	cfg.SessionSecret = env.GetStringOrDefault("SESSION_SECRET", "dev-insecure-change-me")
	cfg.SafeModeDefault = env.GetBoolOrDefault("SAFE_MODE_DEFAULT", true)
	cfg.ReadOnlyMode = env.GetBoolOrDefault("READ_ONLY", false)
	cfg.AllowAdHocConnections = env.GetBoolOrDefault("ALLOW_ADHOC_CONNECTIONS", false)
	cfg.EnabledDrivers = splitCSV(env.GetStringOrDefault("ENABLED_DRIVERS", strings.Join(defaultEnabledDrivers(), ",")))

	cfg.Database = ConnConfig{
		Driver:   env.GetStringOrDefault("DB_DRIVER", DriverMySQL),
		Host:     env.GetStringOrDefault("DB_HOST", "127.0.0.1"),
		Port:     env.GetIntOrDefault("DB_PORT", 0),
		User:     env.GetStringOrDefault("DB_USER", ""),
		Password: env.GetStringOrDefault("DB_PASSWORD", ""),
		Database: env.GetStringOrDefault("DB_DATABASE", ""),
		Charset:  env.GetStringOrDefault("DB_CHARSET", defaultCharset),
	}
	timeout, err := time.ParseDuration(env.GetStringOrDefault("DB_TIMEOUT", defaultTimeout.String()))
	if err != nil {
		return cfg, fmt.Errorf("DB_TIMEOUT: %w", err)
	}
	cfg.Database.Timeout = timeout

	return cfg, cfg.Validate()
}

// LoadConfigFile overlays the YAML file at path onto cfg. Keys absent from
// the file keep their current value.
func LoadConfigFile(cfg Config, path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields the server cannot run without.
func (c Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTPPort)
	}
	if !isKnownDriver(c.Database.Driver) {
		return fmt.Errorf("unsupported driver: %s", c.Database.Driver)
	}
	for _, d := range c.EnabledDrivers {
		if !isKnownDriver(d) {
			return fmt.Errorf("unsupported enabled driver: %s", d)
		}
	}
	return nil
}

// Options builds the HTTP handler options from the configuration.
func (c Config) Options() Options {
	return Options{
		BasePath:        c.BasePath,
		ActionParam:     c.ActionParam,
		SessionSecret:   c.SessionSecret,
		SafeModeDefault: c.SafeModeDefault,
		ReadOnlyMode:    c.ReadOnlyMode,

		AllowAdHocConnections: c.AllowAdHocConnections,
		EnabledDrivers:        c.EnabledDrivers,
	}
}
