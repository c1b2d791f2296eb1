// Package relational implements the driven SourceConnector and ContentSource
// ports over database/sql.
//
// Three drivers are supported:
//
//   - pgx: PostgreSQL via github.com/jackc/pgx/v5/stdlib (default)
//   - postgres: PostgreSQL via github.com/lib/pq
//   - sqlite: modernc.org/sqlite, for local runs and tests
//
// Every query is parameterised with $n placeholders; identifier lists are
// bound one placeholder per id and split into chunks of MaxIDsPerQuery.
// Tables are addressed through a schema prefix (default "content").
//
// A Connector opens a fresh *sql.DB for each pass; the returned Source owns
// it and releases it on Close.
package relational
