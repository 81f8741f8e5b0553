package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExportCommand tests re-exporting the latest packet of an existing
// workspace.
func TestExportCommand(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "--workspace", dir, "run")
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "--workspace", dir, "export")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "exports/packet_0000.md", resp.Data)
}

// TestExportCommand_EmptyWorkspace tests the skip when no packet has
// ever been composed.
func TestExportCommand_EmptyWorkspace(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--format", "json", "--workspace", dir, "export")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "skip", resp.Status)
	assert.Equal(t, "INVALID_PACKET", resp.Reason)
}
