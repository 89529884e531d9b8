package ml

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputSchema(t *testing.T) {
	payload, err := InputSchema()
	require.NoError(t, err)

	var doc struct {
		Properties map[string]map[string]any `json:"properties"`
		Required   []string                  `json:"required"`
	}
	require.NoError(t, json.Unmarshal(payload, &doc))

	assert.Contains(t, doc.Properties, "age")
	assert.Contains(t, doc.Properties, "height_cm")
	assert.Equal(t, 100.0, doc.Properties["age"]["maximum"])
	assert.ElementsMatch(t, []any{"northeast", "northwest", "southeast", "southwest"}, doc.Properties["region"]["enum"])
	assert.Contains(t, doc.Required, "region")
	assert.NotContains(t, doc.Required, "bmi")
}
