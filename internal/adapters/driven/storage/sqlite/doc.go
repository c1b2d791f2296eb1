// Package sqlite provides a SQLite-backed CheckpointStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The schema is managed by goose from the versioned migrations embedded in the
// migrations/ directory. Watermarks live in a single table keyed by entity kind
// and are replaced in one transaction per write.
//
// # Data Location
//
// By default, the database is stored at ~/.moviesync/checkpoints.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
