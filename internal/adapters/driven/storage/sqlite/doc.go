// Package sqlite persists run history and scheduler state in a single SQLite
// database using modernc.org/sqlite, a pure Go driver that needs no CGO.
//
// # Schema
//
// The schema is managed through numbered migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.slackpanel/data/slackpanel.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode.
package sqlite
