// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - BlobStore: Durable day-file persistence (local disk or cloud bucket)
//   - SourceClient: Directory, detail and analytics access to the chat platform
//   - Uploader: Batched ingestion into the analytics platform
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - RunStore: Run history. Without it reports are only returned, not kept.
//   - SchedulerStore: Scheduled task state. Only needed when the scheduler runs.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
