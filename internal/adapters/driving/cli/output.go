package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// Output formats.
const (
	outputAuto = ""
	outputText = "text"
	outputJSON = "json"
)

// resolveOutput picks text for terminals and JSON otherwise when format is auto.
func resolveOutput(w io.Writer, format string) (string, error) {
	switch format {
	case outputText, outputJSON:
		return format, nil
	case outputAuto:
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return outputText, nil
		}
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReport formats a run report for humans.
func renderReport(r *domain.RunReport) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Run "+r.RunID) + "\n")
	row(&b, "Pipeline", r.Pipeline)
	row(&b, "Status", statusStyle(r.Status).Render(r.Status))
	row(&b, "Window", fmt.Sprintf("%s..%s (%d days)", r.Window.Start, r.Window.End, r.Window.Days))
	row(&b, "Duration", fmt.Sprintf("%dms", r.Timing.DurationMS))

	for _, kind := range reportKinds(r) {
		b.WriteString("\n" + titleStyle.Render(string(kind)) + "\n")
		if e := r.Extract[kind]; e != nil {
			row(&b, "Extracted", fmt.Sprintf("%d days", e.Extracted))
			if e.Skipped > 0 {
				row(&b, "Skipped", warningStyle.Render(fmt.Sprintf("%d days", e.Skipped)))
			}
			if e.Failed > 0 {
				row(&b, "Failed", errorStyle.Render(fmt.Sprintf("%d days", e.Failed)))
			}
		}
		if l := r.Load[kind]; l != nil {
			row(&b, "Events", phase(l.Results.Events))
			row(&b, "Profiles", phase(l.Results.Profiles))
			if l.Cleaned > 0 {
				row(&b, "Cleaned", fmt.Sprintf("%d files", l.Cleaned))
			}
		}
	}

	if r.Error != "" {
		b.WriteString("\n" + errorStyle.Render("Error: ") + r.Error + "\n")
	}
	return b.String()
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + value + "\n")
}

func phase(p domain.PhaseResult) string {
	if p.Success {
		return fmt.Sprintf("%d records", p.Count)
	}
	if p.Error == "" {
		return "skipped"
	}
	return errorStyle.Render("failed: " + p.Error)
}

// reportKinds lists the kinds present in a report in processing order.
func reportKinds(r *domain.RunReport) []domain.EntityKind {
	var kinds []domain.EntityKind
	for _, k := range domain.AllKinds() {
		if r.Extract[k] != nil || r.Load[k] != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
