package phasr

import (
	"encoding/json"
	"strings"

	"github.com/zoobzio/phasr/curve"
	"github.com/zoobzio/sentinel"
)

// PlanSchema returns the JSON Schema of InterventionPlan, used to fill the
// {{schema}} template variable.
func PlanSchema() string {
	schema := objectSchema[InterventionPlan]()
	props := schema["properties"].(map[string]interface{})

	setItems(props, "substances", objectSchema[Substance]())

	curveSchema := objectSchema[curve.Curve]()
	curveProps := curveSchema["properties"].(map[string]interface{})
	setItems(curveProps, "baseline", objectSchema[curve.PhasePoint]())
	setItems(curveProps, "desired", objectSchema[curve.PhasePoint]())
	setItems(props, "curves", curveSchema)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

// generateJSONSchema creates a JSON Schema from a flat struct type using sentinel.
func generateJSONSchema[T any]() string {
	jsonBytes, err := json.MarshalIndent(objectSchema[T](), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}

func objectSchema[T any]() map[string]interface{} {
	metadata := sentinel.Inspect[T]()
	return map[string]interface{}{
		"type":                 "object",
		"properties":           buildProperties(metadata.Fields),
		"required":             buildRequiredFields(metadata.Fields),
		"additionalProperties": false,
	}
}

func setItems(props map[string]interface{}, name string, items map[string]interface{}) {
	if prop, ok := props[name].(map[string]interface{}); ok {
		prop["items"] = items
	}
}

// buildProperties converts field metadata to JSON Schema properties.
func buildProperties(fields []sentinel.FieldMetadata) map[string]interface{} {
	properties := make(map[string]interface{})

	for _, field := range fields {
		jsonName := getJSONFieldName(field)
		if jsonName == "-" {
			continue
		}

		prop := map[string]interface{}{
			"type": goTypeToJSONType(field.Type),
		}
		if desc, ok := field.Tags["desc"]; ok {
			prop["description"] = desc
		}
		properties[jsonName] = prop
	}

	return properties
}

// buildRequiredFields lists fields without omitempty.
func buildRequiredFields(fields []sentinel.FieldMetadata) []string {
	required := []string{}

	for _, field := range fields {
		jsonName := getJSONFieldName(field)
		if jsonName == "-" {
			continue
		}
		if !hasOmitempty(field) {
			required = append(required, jsonName)
		}
	}

	return required
}

func getJSONFieldName(field sentinel.FieldMetadata) string {
	if jsonTag, ok := field.Tags["json"]; ok {
		parts := strings.Split(jsonTag, ",")
		if len(parts) > 0 && parts[0] != "" {
			return parts[0]
		}
	}
	return strings.ToLower(field.Name[:1]) + field.Name[1:]
}

func hasOmitempty(field sentinel.FieldMetadata) bool {
	if jsonTag, ok := field.Tags["json"]; ok {
		return strings.Contains(jsonTag, "omitempty")
	}
	return false
}

// goTypeToJSONType maps Go types to JSON Schema types.
func goTypeToJSONType(goType string) string {
	switch {
	case strings.HasPrefix(goType, "string"):
		return "string"
	case strings.HasPrefix(goType, "int"), strings.HasPrefix(goType, "uint"):
		return "integer"
	case strings.HasPrefix(goType, "float"):
		return "number"
	case strings.HasPrefix(goType, "bool"):
		return "boolean"
	case strings.HasPrefix(goType, "[]"):
		return "array"
	default:
		return "object"
	}
}
