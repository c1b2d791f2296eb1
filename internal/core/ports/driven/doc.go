// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CheckpointStore: Per-kind watermark persistence (JSON file, SQLite, memory)
//   - SourceConnector: Opens a pass-scoped handle on the relational source
//   - ContentSource: Change scans, relation resolution and the film join
//   - SearchIndex: Index creation and bulk upsert (Elasticsearch, memory)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
