package domain

import "time"

// Run statuses.
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// ExtractResult summarises one Extract call.
type ExtractResult struct {
	Extracted int      `json:"extracted"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Files     []string `json:"files"`
}

// PhaseResult is the outcome of one upload phase.
type PhaseResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count"`
}

// LoadPhases groups the two upload phases.
type LoadPhases struct {
	Events   PhaseResult `json:"events"`
	Profiles PhaseResult `json:"profiles"`
}

// LoadResult summarises one Load call.
// Uploaded and Failed count files per phase.
type LoadResult struct {
	Uploaded int        `json:"uploaded"`
	Failed   int        `json:"failed"`
	Cleaned  int        `json:"cleaned,omitempty"`
	Results  LoadPhases `json:"results"`
}

// Timing is the wall-clock span of a run.
type Timing struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMS int64     `json:"duration_ms"`
}

// Window is the effective date window of a run.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// RunReport is the structured result of one pipeline run.
// It is built additively by the orchestrator and immutable once returned.
type RunReport struct {
	RunID    string                        `json:"run_id"`
	Status   string                        `json:"status"`
	Pipeline string                        `json:"pipeline"`
	Timing   Timing                        `json:"timing"`
	Params   RunParams                     `json:"params"`
	Window   Window                        `json:"window"`
	Extract  map[EntityKind]*ExtractResult `json:"extract"`
	Load     map[EntityKind]*LoadResult    `json:"load"`
	Error    string                        `json:"error,omitempty"`
}

// Totals sums extract and load counters across entity-pipelines.
func (r *RunReport) Totals() (extracted, skipped, uploaded, failed int) {
	for _, e := range r.Extract {
		extracted += e.Extracted
		skipped += e.Skipped
	}
	for _, l := range r.Load {
		uploaded += l.Uploaded
		failed += l.Failed
	}
	return extracted, skipped, uploaded, failed
}
