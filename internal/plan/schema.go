package plan

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce     sync.Once
	planSchema     map[string]any
	decisionSchema map[string]any
)

// PlanSchema returns the JSON schema the planning model must answer with.
func PlanSchema() map[string]any {
	schemaOnce.Do(buildSchemas)
	return planSchema
}

// DecisionSchema returns the JSON schema of an after-step decision.
func DecisionSchema() map[string]any {
	schemaOnce.Do(buildSchemas)
	return decisionSchema
}

func buildSchemas() {
	planSchema = reflectSchema(&Plan{})
	decisionSchema = reflectSchema(&Decision{})
}

// reflectSchema inlines every definition, leaving no $ref in the output.
func reflectSchema(v any) map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	data, err := json.Marshal(r.Reflect(v))
	if err != nil {
		// the reflected types are fixed, this cannot fail at runtime
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	delete(out, "$schema")
	return out
}
