package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

func TestResolveOutput(t *testing.T) {
	buf := new(bytes.Buffer)

	got, err := resolveOutput(buf, outputAuto)
	require.NoError(t, err)
	assert.Equal(t, outputJSON, got, "non-terminal writers get JSON")

	got, err = resolveOutput(buf, outputText)
	require.NoError(t, err)
	assert.Equal(t, outputText, got)

	_, err = resolveOutput(buf, "xml")
	assert.Error(t, err)
}

func TestRenderReport_AllKindsInOrder(t *testing.T) {
	r := sampleReport()
	r.Pipeline = domain.PipelineAll
	r.Extract[domain.KindChannels] = &domain.ExtractResult{Extracted: 1, Failed: 1}
	r.Load[domain.KindChannels] = &domain.LoadResult{
		Results: domain.LoadPhases{
			Events:   domain.PhaseResult{Error: "status 400"},
			Profiles: domain.PhaseResult{},
		},
	}

	out := renderReport(r)

	assert.Less(t, bytes.Index([]byte(out), []byte("members")), bytes.Index([]byte(out), []byte("channels")))
	assert.Contains(t, out, "failed: status 400")
	assert.Contains(t, out, "skipped")
}

func TestReportKinds(t *testing.T) {
	r := &domain.RunReport{
		Load: map[domain.EntityKind]*domain.LoadResult{domain.KindChannels: {}},
	}
	assert.Equal(t, []domain.EntityKind{domain.KindChannels}, reportKinds(r))
}
