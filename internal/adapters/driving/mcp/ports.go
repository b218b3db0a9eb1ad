package mcp

import (
	"github.com/custodia-labs/slackpanel/internal/core/ports/driven"
	"github.com/custodia-labs/slackpanel/internal/core/ports/driving"
)

// Ports aggregates the services the MCP server exposes.
type Ports struct {
	// Runner executes pipeline runs.
	Runner driving.PipelineRunner

	// Runs serves run history. Optional.
	Runs driven.RunStore
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Runner == nil {
		return ErrMissingRunner
	}
	return nil
}
