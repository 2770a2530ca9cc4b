package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNode_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	configPath := filepath.Join(dir, "node.yaml")
	config := "name: porch\nstore:\n  driver: json\n  path: " + statePath + "\n" +
		"digital-outputs:\n  - topic: lamp\n    pin: 4\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	require.NoError(t, os.WriteFile(statePath, []byte(`{"presses":3}`), 0o644))

	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(logs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runNode(ctx, cmd, &RootOptions{Config: configPath, LogLevel: "debug"}, &RunOptions{NoWatch: true}, map[string]string{})
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "configured")
	assert.Contains(t, logs.String(), "state restored")

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"presses":3}`, string(data))
}

func TestRunNode_MissingConfig(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := runNode(context.Background(), cmd, &RootOptions{Config: filepath.Join(t.TempDir(), "none.toml")}, &RunOptions{NoWatch: true}, map[string]string{})
	require.Error(t, err)
}
