// Package memory provides in-memory implementations of the storage ports.
// Nothing survives the process; used by tests and the "memory" storage
// driver for dry runs.
package memory
