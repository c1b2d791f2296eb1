package relational

import (
	"fmt"
	"regexp"
	"time"
)

// Supported driver names. They match the names the drivers register with
// database/sql.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Defaults.
const (
	DefaultSchema         = "content"
	DefaultMaxIDsPerQuery = 1000
	DefaultConnectTimeout = 5 * time.Second
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds database connection configuration.
type Config struct {
	Driver          string
	DSN             string
	Schema          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	MaxIDsPerQuery  int
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverPgx
	}
	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	if c.MaxIDsPerQuery <= 0 {
		c.MaxIDsPerQuery = DefaultMaxIDsPerQuery
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}

func (c Config) validate() error {
	switch c.Driver {
	case DriverPgx, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if !identRe.MatchString(c.Schema) {
		return fmt.Errorf("invalid schema name %q", c.Schema)
	}
	return nil
}
