// Package domain defines the core business entities for slackpanel.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record / EnrichedRecord: one analytics row per entity per day
//   - Entity / Detail: directory entries and deep per-entity lookups
//   - Event / Profile / GroupProfile: destination payload variants
//   - RunParams / DateRange: validated run parameters
//   - RunReport: the structured result of one pipeline run
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
