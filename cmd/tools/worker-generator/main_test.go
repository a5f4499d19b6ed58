package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow-workers/pkg/registry"
)

func TestGoFieldName(t *testing.T) {
	tests := map[string]string{
		"leadId":          "LeadID",
		"failedServerIds": "FailedServerIDs",
		"date":            "Date",
		"costPerLead":     "CostPerLead",
	}
	for in, want := range tests {
		assert.Equal(t, want, goFieldName(in), in)
	}
}

func TestParseSchema(t *testing.T) {
	fields := parseSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"serverId":        map[string]interface{}{"type": "string"},
			"date":            map[string]interface{}{"type": "string"},
			"totalLeads":      map[string]interface{}{"type": "integer"},
			"failedServerIds": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []interface{}{"serverId"},
	})

	require.Len(t, fields, 4)
	assert.Equal(t, Field{Name: "Date", GoType: "string", JSONTag: "`json:\"date,omitempty\"`"}, fields[0])
	assert.Equal(t, "[]string", fields[1].GoType)
	assert.Equal(t, "`json:\"serverId\"`", fields[2].JSONTag)
	assert.Equal(t, "int", fields[3].GoType)
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	a := registry.Activity{
		TaskType:    "run-daily-rollup",
		DisplayName: "Run Daily Rollup",
		Category:    "rollup",
		Timeout:     "30s",
		InputSchema: map[string]interface{}{
			"properties": map[string]interface{}{"serverId": map[string]interface{}{"type": "string"}},
			"required":   []interface{}{"serverId"},
		},
		OutputSchema: map[string]interface{}{
			"properties": map[string]interface{}{"finalized": map[string]interface{}{"type": "boolean"}},
		},
	}

	dir, err := generate(root, a, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "internal", "workers", "rollup", "run-daily-rollup"), dir)

	models, err := os.ReadFile(filepath.Join(dir, "models.go"))
	require.NoError(t, err)
	assert.Contains(t, string(models), "package rundailyrollup")
	assert.Contains(t, string(models), "ServerID string `json:\"serverId\"`")

	cfg, err := os.ReadFile(filepath.Join(dir, "config.go"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "30000 * time.Millisecond")

	handler := filepath.Join(dir, "handler.go")
	require.NoError(t, os.WriteFile(handler, []byte("package rundailyrollup\n"), 0o644))
	_, err = generate(root, a, false)
	require.NoError(t, err)
	kept, _ := os.ReadFile(handler)
	assert.Equal(t, "package rundailyrollup\n", string(kept))
}
