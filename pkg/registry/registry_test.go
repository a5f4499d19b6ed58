package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_ShippedFile(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)

	assert.Empty(t, reg.Validate())
	assert.ElementsMatch(t, []string{
		"select-franchise-phone",
		"record-phone-assignment",
		"mark-lead-converted",
		"run-daily-rollup",
		"rollup-all-servers",
		"franchise-distribution",
		"notify-operators",
	}, reg.TaskTypes())

	a, ok := reg.Find("run-daily-rollup")
	require.True(t, ok)
	assert.Contains(t, a.InputSchema["required"], "serverId")
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = LoadRegistry(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{
		{ID: "a", TaskType: "run-daily-rollup", Timeout: "30s", InputSchema: map[string]interface{}{}},
		{ID: "b", TaskType: "run-daily-rollup", InputSchema: map[string]interface{}{}},
		{ID: "c", TaskType: "Bad_Type", Timeout: "soon"},
	}}

	errs := reg.Validate()
	// duplicate, naming, timeout, missing schema
	assert.Len(t, errs, 4)

	_, ok := reg.Find("nope")
	assert.False(t, ok)
}

func TestActivity_TimeoutDuration(t *testing.T) {
	d, err := Activity{Timeout: "5m"}.TimeoutDuration(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	d, err = Activity{}.TimeoutDuration(time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	_, err = Activity{Timeout: "soon"}.TimeoutDuration(time.Second)
	assert.Error(t, err)

	reg := &ActivityRegistry{Activities: []Activity{
		{ID: "a", TaskType: "run-daily-rollup", Timeout: "-1s", InputSchema: map[string]interface{}{}},
	}}
	assert.Len(t, reg.Validate(), 1)
}
