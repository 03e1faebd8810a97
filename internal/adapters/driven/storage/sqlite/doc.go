// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements several store interfaces
// through a single database file:
//
//   - Exporter: the vector export table, with exact cosine search
//   - TrackingStore: per-file indexing records
//   - TransformCache: memoised extraction results
//
// # Schema
//
// Fixed tables are managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Export tables are created on demand by Exporter.EnsureTarget because their
// names come from configuration.
//
// Embeddings are stored as little-endian float32 BLOBs.
//
// # Data Location
//
// By default, the database is stored at ~/.docindex/data/docindex.db
//
// # Thread Safety
//
// All operations are thread-safe. The store holds a single connection, so
// writers are serialised by database/sql rather than failing with SQLITE_BUSY.
package sqlite
