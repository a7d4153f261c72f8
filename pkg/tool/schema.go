package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// generateSchema reflects a JSON-Schema parameter object from a typed Go
// struct's json/jsonschema tags, so each tool's Schema() stays in lock
// step with the struct its Call implementation actually decodes into.
func generateSchema[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("tool: marshal schema: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("tool: unmarshal schema: %w", err)
	}
	delete(raw, "$schema")
	delete(raw, "$id")

	if raw["type"] != "object" {
		return raw, nil
	}

	result := map[string]any{
		"type":       "object",
		"properties": raw["properties"],
	}
	if required, ok := raw["required"]; ok {
		result["required"] = required
	}
	if additional, ok := raw["additionalProperties"]; ok {
		result["additionalProperties"] = additional
	}
	return result, nil
}

// decodeArgs re-marshals a raw arguments map into a typed struct via its
// json tags, mirroring how llms.ToolCall.Arguments arrives off the wire.
func decodeArgs[T any](args map[string]any) (T, error) {
	var typed T
	data, err := json.Marshal(args)
	if err != nil {
		return typed, fmt.Errorf("marshal arguments: %w", err)
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return typed, fmt.Errorf("unmarshal arguments: %w", err)
	}
	return typed, nil
}
