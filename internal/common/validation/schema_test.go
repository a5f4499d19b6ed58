package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow-workers/pkg/registry"
)

func testRegistry() *registry.ActivityRegistry {
	return &registry.ActivityRegistry{Activities: []registry.Activity{
		{
			ID:       "run-daily-rollup",
			TaskType: "run-daily-rollup",
			InputSchema: map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"serverId"},
				"properties": map[string]interface{}{
					"serverId": map[string]interface{}{"type": "string", "minLength": 1},
					"date":     map[string]interface{}{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
				},
			},
		},
	}}
}

func TestValidator_Validate(t *testing.T) {
	v, err := NewValidator(testRegistry())
	require.NoError(t, err)

	tests := []struct {
		name      string
		vars      string
		wantValid bool
		field     string
	}{
		{"valid", `{"serverId":"srv-1","date":"2024-03-01"}`, true, ""},
		{"date optional", `{"serverId":"srv-1"}`, true, ""},
		{"missing server", `{"date":"2024-03-01"}`, false, ""},
		{"empty server", `{"serverId":""}`, false, "serverId"},
		{"bad date", `{"serverId":"srv-1","date":"03/01/2024"}`, false, "date"},
		{"empty variables", ``, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate("run-daily-rollup", tt.vars)
			assert.Equal(t, tt.wantValid, res.Valid, res.GetErrorMessages())
			if tt.field != "" {
				assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())
			}
		})
	}
}

func TestValidator_UnknownTaskTypePasses(t *testing.T) {
	v, err := NewValidator(testRegistry())
	require.NoError(t, err)
	assert.True(t, v.Validate("mark-lead-converted", `{}`).Valid)
}

func TestNewValidator_BrokenSchema(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{
		{TaskType: "x", InputSchema: map[string]interface{}{"type": 12}},
	}}
	_, err := NewValidator(reg)
	assert.Error(t, err)
}

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2024-02-29"))
	assert.Error(t, ValidateDate("2023-02-29"))
	assert.Error(t, ValidateDate("2024-3-1"))
	assert.Error(t, ValidateDate(""))
}
