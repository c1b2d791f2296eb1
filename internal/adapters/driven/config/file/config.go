package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/relational"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/adapters/driven/search/elastic"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

// Checkpoint backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MOVIESYNC_"

// DirName is the per-user directory holding the default config and state.
const DirName = ".moviesync"

// Config is the complete process configuration.
type Config struct {
	Database   DatabaseConfig   `toml:"database" yaml:"database"`
	Elastic    ElasticConfig    `toml:"elastic" yaml:"elastic"`
	Indices    IndicesConfig    `toml:"indices" yaml:"indices"`
	Checkpoint CheckpointConfig `toml:"checkpoint" yaml:"checkpoint"`
	Sync       SyncSection      `toml:"sync" yaml:"sync"`
	Retry      RetryConfig      `toml:"retry" yaml:"retry"`
	HTTP       HTTPConfig       `toml:"http" yaml:"http"`
	Log        LogConfig        `toml:"log" yaml:"log"`
}

// DatabaseConfig selects the relational source. DSN wins over the
// individual connection fields when both are set.
type DatabaseConfig struct {
	Driver          string   `toml:"driver" yaml:"driver"`
	DSN             string   `toml:"dsn" yaml:"dsn"`
	Host            string   `toml:"host" yaml:"host"`
	Port            int      `toml:"port" yaml:"port"`
	Name            string   `toml:"name" yaml:"name"`
	User            string   `toml:"user" yaml:"user"`
	Password        string   `toml:"password" yaml:"password"`
	Options         string   `toml:"options" yaml:"options"`
	Schema          string   `toml:"schema" yaml:"schema"`
	MaxOpenConns    int      `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int      `toml:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime Duration `toml:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout  Duration `toml:"connect_timeout" yaml:"connect_timeout"`
	MaxIDsPerQuery  int      `toml:"max_ids_per_query" yaml:"max_ids_per_query"`
}

// ElasticConfig configures the search cluster client.
type ElasticConfig struct {
	URLs              []string `toml:"urls" yaml:"urls"`
	Username          string   `toml:"username" yaml:"username"`
	Password          string   `toml:"password" yaml:"password"`
	Sniff             bool     `toml:"sniff" yaml:"sniff"`
	Healthcheck       bool     `toml:"healthcheck" yaml:"healthcheck"`
	RequestsPerSecond float64  `toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int      `toml:"burst" yaml:"burst"`
	Refresh           string   `toml:"refresh" yaml:"refresh"`
}

// IndicesConfig names the three target indices.
type IndicesConfig struct {
	Movies  string `toml:"movies" yaml:"movies"`
	Genres  string `toml:"genres" yaml:"genres"`
	Persons string `toml:"persons" yaml:"persons"`
}

// CheckpointConfig selects where watermarks are persisted.
type CheckpointConfig struct {
	Backend string `toml:"backend" yaml:"backend"`
	Path    string `toml:"path" yaml:"path"`
}

// SyncSection tunes the pass and the polling loop.
type SyncSection struct {
	BatchSize         int      `toml:"batch_size" yaml:"batch_size"`
	GenreBatchSize    int      `toml:"genre_batch_size" yaml:"genre_batch_size"`
	BulkSize          int      `toml:"bulk_size" yaml:"bulk_size"`
	ConcurrentExtract bool     `toml:"concurrent_extract" yaml:"concurrent_extract"`
	PollInterval      Duration `toml:"poll_interval" yaml:"poll_interval"`
	Jitter            Duration `toml:"jitter" yaml:"jitter"`
}

// RetryConfig is the connection-failure backoff policy.
type RetryConfig struct {
	InitialInterval Duration `toml:"initial_interval" yaml:"initial_interval"`
	MaxInterval     Duration `toml:"max_interval" yaml:"max_interval"`
	MaxElapsed      Duration `toml:"max_elapsed" yaml:"max_elapsed"`
	JitterPercent   uint64   `toml:"jitter_percent" yaml:"jitter_percent"`
}

// HTTPConfig configures the status server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	sc := domain.DefaultSyncConfig()
	return &Config{
		Database: DatabaseConfig{
			Driver:         relational.DriverPgx,
			Host:           "localhost",
			Port:           5432,
			Name:           "postgres",
			User:           "postgres",
			Schema:         relational.DefaultSchema,
			MaxIDsPerQuery: relational.DefaultMaxIDsPerQuery,
			ConnectTimeout: Duration(relational.DefaultConnectTimeout),
		},
		Elastic: ElasticConfig{URLs: []string{elastic.DefaultURL}},
		Indices: IndicesConfig{
			Movies:  sc.Indices.Movies,
			Genres:  sc.Indices.Genres,
			Persons: sc.Indices.Persons,
		},
		Checkpoint: CheckpointConfig{Backend: BackendFile},
		Sync: SyncSection{
			BatchSize:         sc.BatchSize,
			GenreBatchSize:    sc.GenreBatchSize,
			BulkSize:          sc.BulkSize,
			ConcurrentExtract: sc.ConcurrentExtract,
			PollInterval:      Duration(domain.DefaultPollInterval),
		},
		Retry: RetryConfig{
			InitialInterval: Duration(sc.Retry.InitialInterval),
			MaxInterval:     Duration(sc.Retry.MaxInterval),
			MaxElapsed:      Duration(sc.Retry.MaxElapsed),
			JitterPercent:   sc.Retry.JitterPercent,
		},
		Log: LogConfig{Level: "info", Format: logger.FormatText},
	}
}

// DefaultDir returns ~/.moviesync.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns the config file read when no path is given.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load builds the configuration: defaults, then the file at path, then
// environment overrides. An empty path reads DefaultPath if it exists.
// The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		err := cfg.decodeFile(path)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile merges the file at path into c. The format follows the
// extension: .yaml and .yml are YAML, anything else TOML. Unknown keys
// are rejected.
func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidInput, path, err)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return fmt.Errorf("%w: parsing %s: %s", domain.ErrInvalidInput, path, strict.String())
			}
			return fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidInput, path, err)
		}
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv applies MOVIESYNC_* overrides.
func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_DSN", &c.Database.DSN)
	str("DATABASE_HOST", &c.Database.Host)
	num("DATABASE_PORT", &c.Database.Port)
	str("DATABASE_NAME", &c.Database.Name)
	str("DATABASE_USER", &c.Database.User)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("DATABASE_SCHEMA", &c.Database.Schema)
	if v, ok := lookup(EnvPrefix + "ELASTIC_URLS"); ok {
		c.Elastic.URLs = splitList(v)
	}
	str("ELASTIC_USERNAME", &c.Elastic.Username)
	str("ELASTIC_PASSWORD", &c.Elastic.Password)
	str("CHECKPOINT_BACKEND", &c.Checkpoint.Backend)
	str("CHECKPOINT_PATH", &c.Checkpoint.Path)
	num("BATCH_SIZE", &c.Sync.BatchSize)
	num("GENRE_BATCH_SIZE", &c.Sync.GenreBatchSize)
	num("BULK_SIZE", &c.Sync.BulkSize)
	flag("CONCURRENT_EXTRACT", &c.Sync.ConcurrentExtract)
	dur("POLL_INTERVAL", &c.Sync.PollInterval)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("%w: environment: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case relational.DriverPgx, relational.DriverPostgres, relational.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if c.DatabaseDSN() == "" {
		errs = append(errs, errors.New("database: dsn or host is required"))
	}
	if len(c.Elastic.URLs) == 0 {
		errs = append(errs, errors.New("elastic.urls: at least one URL is required"))
	}
	for _, u := range c.Elastic.URLs {
		if parsed, err := url.Parse(u); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("elastic.urls: invalid URL %q", u))
		}
	}
	if c.Indices.Movies == "" || c.Indices.Genres == "" || c.Indices.Persons == "" {
		errs = append(errs, errors.New("indices: movies, genres and persons must be named"))
	}
	switch c.Checkpoint.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("checkpoint.backend: unknown backend %q", c.Checkpoint.Backend))
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("sync.batch_size must be positive"))
	}
	if c.Sync.GenreBatchSize <= 0 {
		errs = append(errs, errors.New("sync.genre_batch_size must be positive"))
	}
	if c.Sync.BulkSize <= 0 {
		errs = append(errs, errors.New("sync.bulk_size must be positive"))
	}
	if c.Sync.PollInterval <= 0 {
		errs = append(errs, errors.New("sync.poll_interval must be positive"))
	}
	if c.Retry.InitialInterval <= 0 {
		errs = append(errs, errors.New("retry.initial_interval must be positive"))
	}
	if c.Retry.JitterPercent > 100 {
		errs = append(errs, errors.New("retry.jitter_percent must be at most 100"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case logger.FormatText, logger.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// DatabaseDSN returns Database.DSN, or a postgres URL assembled from the
// individual connection fields when DSN is empty.
func (c *Config) DatabaseDSN() string {
	db := c.Database
	if db.DSN != "" {
		return db.DSN
	}
	if db.Host == "" {
		return ""
	}

	host := db.Host
	if db.Port > 0 {
		host = net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
	}
	u := url.URL{Scheme: "postgres", Host: host, Path: "/" + db.Name}
	if db.User != "" {
		if db.Password != "" {
			u.User = url.UserPassword(db.User, db.Password)
		} else {
			u.User = url.User(db.User)
		}
	}
	if db.Options != "" {
		u.RawQuery = url.Values{"options": {db.Options}}.Encode()
	}
	return u.String()
}

// SyncConfig projects the pass configuration.
func (c *Config) SyncConfig() domain.SyncConfig {
	return domain.SyncConfig{
		BatchSize:         c.Sync.BatchSize,
		GenreBatchSize:    c.Sync.GenreBatchSize,
		BulkSize:          c.Sync.BulkSize,
		ConcurrentExtract: c.Sync.ConcurrentExtract,
		Indices: domain.IndexNames{
			Movies:  c.Indices.Movies,
			Genres:  c.Indices.Genres,
			Persons: c.Indices.Persons,
		},
		Retry: domain.RetryPolicy{
			InitialInterval: time.Duration(c.Retry.InitialInterval),
			MaxInterval:     time.Duration(c.Retry.MaxInterval),
			MaxElapsed:      time.Duration(c.Retry.MaxElapsed),
			JitterPercent:   c.Retry.JitterPercent,
		},
	}
}

// SchedulerConfig projects the polling loop configuration.
func (c *Config) SchedulerConfig() domain.SchedulerConfig {
	return domain.SchedulerConfig{
		PollInterval: time.Duration(c.Sync.PollInterval),
		Jitter:       time.Duration(c.Sync.Jitter),
	}
}

// RelationalConfig projects the relational adapter configuration.
func (c *Config) RelationalConfig() relational.Config {
	db := c.Database
	return relational.Config{
		Driver:          db.Driver,
		DSN:             c.DatabaseDSN(),
		Schema:          db.Schema,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: time.Duration(db.ConnMaxLifetime),
		ConnMaxIdleTime: time.Duration(db.ConnMaxIdleTime),
		ConnectTimeout:  time.Duration(db.ConnectTimeout),
		MaxIDsPerQuery:  db.MaxIDsPerQuery,
	}
}

// SearchConfig projects the search adapter configuration.
func (c *Config) SearchConfig() elastic.Config {
	e := c.Elastic
	return elastic.Config{
		URLs:              append([]string(nil), e.URLs...),
		Username:          e.Username,
		Password:          e.Password,
		Sniff:             e.Sniff,
		Healthcheck:       e.Healthcheck,
		RequestsPerSecond: e.RequestsPerSecond,
		Burst:             e.Burst,
		Refresh:           e.Refresh,
	}
}

// CheckpointPath returns Checkpoint.Path, defaulting to a file under
// DefaultDir named for the backend.
func (c *Config) CheckpointPath() (string, error) {
	if c.Checkpoint.Path != "" {
		return c.Checkpoint.Path, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	if c.Checkpoint.Backend == BackendSQLite {
		return filepath.Join(dir, "checkpoints.db"), nil
	}
	return filepath.Join(dir, "state.json"), nil
}
