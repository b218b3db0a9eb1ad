package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Use(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Contains(t, serveCmd.Long, "/metrics")
}

func TestServeCmd_StopsWhenContextCancelled(t *testing.T) {
	setupApp(t, &mockRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := executeContext(t, ctx, "serve")
	require.NoError(t, err)
	assert.Contains(t, out, "Listening on http://127.0.0.1:0")
}
