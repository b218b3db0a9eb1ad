// Package services implements the driving port interfaces.
// Services contain the extract/transform/load logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on domain types and port interfaces; vendor
// clients are injected at construction time.
package services
