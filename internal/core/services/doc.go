// Package services implements the driving port interfaces.
// Services contain the indexing and query logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on ports; concrete backends are injected.
package services
