// Package filesystem implements the local directory Source.
//
// Files are read whole; hidden files and directories (names starting
// with ".") are skipped. Filenames are slash-separated paths relative to
// the root.
package filesystem
