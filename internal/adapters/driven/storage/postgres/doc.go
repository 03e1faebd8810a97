// Package postgres provides an Exporter backed by PostgreSQL with the
// pgvector extension.
//
// The export table has one row per chunk with a vector(D) column and an
// HNSW index using vector_cosine_ops. Declared targets are recorded in the
// docindex_targets table so a change of embedding model is detected on
// the next run.
//
// Tracking records and the transform cache are not stored here; they live
// in the local SQLite store.
package postgres
