package ml

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// InputSchema returns the JSON Schema of a prediction request.
func InputSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := r.Reflect(&RawInput{})
	schema.Title = "Insurance charge prediction input"
	schema.Description = "Supply bmi, or height_cm together with weight_kg."
	return json.MarshalIndent(schema, "", "  ")
}
