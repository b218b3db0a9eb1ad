// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets assistants trigger pipeline runs and inspect run history.
package mcp

import "errors"

// ErrMissingRunner is returned when the pipeline runner is not provided.
var ErrMissingRunner = errors.New("mcp: pipeline runner is required")
