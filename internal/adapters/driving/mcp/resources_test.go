package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

func TestExtractRunID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid run URI", uri: "slackpanel://runs/run-1", expected: "run-1"},
		{name: "invalid prefix", uri: "file://runs/run-1", expected: ""},
		{name: "nested path", uri: "slackpanel://runs/run-1/extra", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractRunID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestServer_handleRunsResource(t *testing.T) {
	store := &mockRunStore{runs: []domain.RunReport{*sampleReport()}}
	server, err := NewServer(&Ports{Runner: &mockRunner{}, Runs: store})
	require.NoError(t, err)

	result, err := server.handleRunsResource(context.Background(), makeReadResourceRequest("slackpanel://runs"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var runs []domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}

func TestServer_handleRunsResource_Error(t *testing.T) {
	store := &mockRunStore{err: errors.New("db locked")}
	server, err := NewServer(&Ports{Runner: &mockRunner{}, Runs: store})
	require.NoError(t, err)

	_, err = server.handleRunsResource(context.Background(), makeReadResourceRequest("slackpanel://runs"))
	assert.ErrorContains(t, err, "listing runs")
}

func TestServer_handleRunResource(t *testing.T) {
	store := &mockRunStore{runs: []domain.RunReport{*sampleReport()}}
	server, err := NewServer(&Ports{Runner: &mockRunner{}, Runs: store})
	require.NoError(t, err)
	ctx := context.Background()

	result, err := server.handleRunResource(ctx, makeReadResourceRequest("slackpanel://runs/run-1"))
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, `"run_id": "run-1"`)

	_, err = server.handleRunResource(ctx, makeReadResourceRequest("slackpanel://runs/missing"))
	assert.Error(t, err)

	_, err = server.handleRunResource(ctx, makeReadResourceRequest("slackpanel://other"))
	assert.Error(t, err)
}
