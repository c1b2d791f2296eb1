// Package domain defines the core types of the movie search sync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - EntityKind and Watermarks: per-kind incremental scan positions
//   - ChangeBatch: rows of one kind updated after a watermark
//   - FilmRow: one joined (film, relation, related entity) row
//   - Film, Genre, Person: the documents written to the search index
//   - PassReport: the outcome of one synchronisation pass
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
