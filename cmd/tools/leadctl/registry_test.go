package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow-workers/pkg/registry"
)

const testRegistry = `{
  "version": "1.0.0",
  "activities": [
    {"id": "run-daily-rollup", "displayName": "Run Daily Rollup", "taskType": "run-daily-rollup",
     "implementationStatus": "planned", "timeout": "30s", "inputSchema": {"type": "object"}}
  ]
}`

func writeRegistry(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRegistryValidate(t *testing.T) {
	path := writeRegistry(t, testRegistry)

	out, err := runRoot(t, "registry", "validate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 activities")

	bad := writeRegistry(t, `{"activities": [{"id": "x", "taskType": "Bad_Type"}]}`)
	_, err = runRoot(t, "registry", "validate", "--path", bad)
	assert.Error(t, err)
}

func TestRegistryValidate_ShippedFile(t *testing.T) {
	_, err := runRoot(t, "registry", "validate", "--path", filepath.Join("..", "..", "..", "configs", "activity-registry.json"))
	assert.NoError(t, err)
}

func TestUpdateActivity(t *testing.T) {
	path := writeRegistry(t, testRegistry)

	require.NoError(t, updateActivity(path, "run-daily-rollup", "status", "completed"))
	require.NoError(t, updateActivity(path, "run-daily-rollup", "retries", "3"))

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	a, ok := reg.Find("run-daily-rollup")
	require.True(t, ok)
	assert.Equal(t, "completed", a.ImplementationStatus)
	assert.Equal(t, 3, a.Retries)
	assert.NotEmpty(t, reg.LastUpdated)

	assert.Error(t, updateActivity(path, "run-daily-rollup", "timeout", "soon"))
	assert.Error(t, updateActivity(path, "run-daily-rollup", "color", "red"))
	assert.Error(t, updateActivity(path, "nope", "status", "completed"))
}
