package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.SourceConnector = (*Connector)(nil)

// Connector opens pass-scoped handles on the relational source.
type Connector struct {
	cfg Config
	q   queries
}

// Open validates cfg and returns a connector. No connection is made until
// Connect is called.
func Open(cfg Config) (*Connector, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: database config: %w", domain.ErrInvalidInput, err)
	}
	return &Connector{cfg: cfg, q: newQueries(cfg.Schema)}, nil
}

// Connect opens a new pool, verifies it with a ping and returns a Source
// owning it.
func (c *Connector) Connect(ctx context.Context) (driven.ContentSource, error) {
	db, err := sql.Open(c.cfg.Driver, c.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Apply connection pool settings
	if c.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.cfg.MaxOpenConns)
	}
	if c.cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	}
	if c.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)
	}
	if c.cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(c.cfg.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ConnectionError("ping database", err)
		}
		return nil, classify(ctx, "ping database", err)
	}

	return &Source{db: db, q: c.q, maxIDs: c.cfg.MaxIDsPerQuery}, nil
}
