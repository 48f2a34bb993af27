package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer"},
		},
		"required": []string{"query"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"query": "emea"}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"query": "emea", "limit": float64(5)}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"query": "emea", "extra": true}, schema), "extra fields pass through")

	err := ValidateParameters(map[string]any{"limit": float64(5)}, schema)
	assert.ErrorContains(t, err, "query")

	err = ValidateParameters(map[string]any{"query": 7}, schema)
	assert.ErrorContains(t, err, "expected type string")

	err = ValidateParameters(map[string]any{"query": "emea", "limit": 2.5}, schema)
	assert.ErrorContains(t, err, "expected type integer")
}

func TestValidateParameters_RequiredAfterJSONRoundTrip(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{"key": map[string]any{"type": "string"}},
		"required":   []any{"key"},
	}
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"key": "notes"}, schema))
}
