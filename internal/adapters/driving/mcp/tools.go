package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
	"github.com/custodia-labs/slackpanel/internal/core/services"
)

// RunPipelineInput is the input schema for the run_pipeline tool.
type RunPipelineInput struct {
	Pipeline    string `json:"pipeline" jsonschema:"members, channels or all"`
	Days        int    `json:"days,omitempty" jsonschema:"number of days ending today"`
	StartDate   string `json:"start_date,omitempty" jsonschema:"first day, YYYY-MM-DD"`
	EndDate     string `json:"end_date,omitempty" jsonschema:"last day, YYYY-MM-DD (defaults to today)"`
	Backfill    bool   `json:"backfill,omitempty" jsonschema:"process the full backfill window"`
	ExtractOnly bool   `json:"extract_only,omitempty" jsonschema:"write day files without uploading"`
	LoadOnly    bool   `json:"load_only,omitempty" jsonschema:"upload existing day files only"`
	Cleanup     bool   `json:"cleanup,omitempty" jsonschema:"delete day files after a successful upload"`
}

// RunPipelineOutput is the output schema for the run_pipeline tool.
type RunPipelineOutput struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Window    string `json:"window"`
	Extracted int    `json:"extracted"`
	Skipped   int    `json:"skipped"`
	Uploaded  int    `json:"uploaded"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// ListRunsInput is the input schema for the list_runs tool.
type ListRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 10)"`
}

// ListRunsOutput is the output schema for the list_runs tool.
type ListRunsOutput struct {
	Runs  []RunPipelineOutput `json:"runs"`
	Count int                 `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_pipeline",
		Description: "Extract Slack analytics for a date window and load them into Mixpanel",
	}, s.handleRunPipeline)

	if s.ports.Runs != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_runs",
			Description: "List the most recent pipeline runs",
		}, s.handleListRuns)
	}
}

// handleRunPipeline validates the input and executes one run.
// A run that started but failed is reported through the output, not as a tool error.
func (s *Server) handleRunPipeline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunPipelineInput,
) (*mcp.CallToolResult, RunPipelineOutput, error) {
	params, err := services.ParseParams(input.raw())
	if err != nil {
		return nil, RunPipelineOutput{}, err
	}

	report, err := s.ports.Runner.Run(ctx, input.Pipeline, params)
	if report == nil {
		if err == nil {
			err = errors.New("run produced no report")
		}
		return nil, RunPipelineOutput{}, err
	}
	return nil, summarize(report), nil
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	runs, err := s.ports.Runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}

	out := ListRunsOutput{Runs: make([]RunPipelineOutput, len(runs)), Count: len(runs)}
	for i := range runs {
		out.Runs[i] = summarize(&runs[i])
	}
	return nil, out, nil
}

// raw converts the typed input into the parameter map accepted by ParseParams.
// Zero values are omitted so that only the caller's choices are validated.
func (in RunPipelineInput) raw() map[string]any {
	raw := map[string]any{}
	if in.Days != 0 {
		raw["days"] = in.Days
	}
	if in.StartDate != "" {
		raw["start_date"] = in.StartDate
	}
	if in.EndDate != "" {
		raw["end_date"] = in.EndDate
	}
	if in.Backfill {
		raw["backfill"] = true
	}
	if in.ExtractOnly {
		raw["extractOnly"] = true
	}
	if in.LoadOnly {
		raw["loadOnly"] = true
	}
	if in.Cleanup {
		raw["cleanup"] = true
	}
	return raw
}

func summarize(report *domain.RunReport) RunPipelineOutput {
	extracted, skipped, uploaded, failed := report.Totals()
	return RunPipelineOutput{
		RunID:     report.RunID,
		Status:    report.Status,
		Window:    report.Window.Start + ".." + report.Window.End,
		Extracted: extracted,
		Skipped:   skipped,
		Uploaded:  uploaded,
		Failed:    failed,
		Error:     report.Error,
	}
}
