// Package file provides file-based configuration adapters.
//
// Adapters:
//   - ConfigStore: TOML configuration file with dot-notation keys
//   - LoadEnv: .env loading into the process environment
package file
