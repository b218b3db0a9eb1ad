// Package migrations holds the versioned schema for run history and scheduled tasks.
// Files are named NNN_name.up.sql / NNN_name.down.sql and applied in version order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
