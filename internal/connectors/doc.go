// Package connectors holds the document sources the indexer reads from.
//
// Only the local filesystem is supported; see package filesystem.
package connectors
