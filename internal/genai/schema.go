// Package genai is the adapter for the structured-generation and embedding
// services, speaking the OpenAI-compatible HTTP API. Generation output is
// validated against the request's output schema before it is returned, so a
// non-conforming response is rejected deterministically at this boundary.
package genai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Schema describes the expected JSON output structure for a generation pass.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single field within a Schema. Items applies to array
// properties, Properties/Required to object properties.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// SchemaValidationError reports generation output that does not conform to
// the requested schema.
type SchemaValidationError struct {
	Violations []string
}

func (e *SchemaValidationError) Error() string {
	return "output does not match schema: " + strings.Join(e.Violations, "; ")
}

// ValidateAgainstSchema checks raw JSON against the schema. A nil return
// means the payload conforms; otherwise every violation is listed.
func ValidateAgainstSchema(raw json.RawMessage, s *Schema) *SchemaValidationError {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return &SchemaValidationError{Violations: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}

	verr := &SchemaValidationError{}
	checkObject(value, s.Properties, s.Required, "", verr)
	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}

func checkObject(value any, props map[string]Property, required []string, path string, verr *SchemaValidationError) {
	obj, ok := value.(map[string]any)
	if !ok {
		verr.addf(path, "expected an object, got %s", jsonTypeName(value))
		return
	}

	for _, req := range required {
		if _, present := obj[req]; !present {
			verr.addf(joinPath(path, req), "required field missing")
		}
	}

	// Sorted iteration keeps violation order deterministic across runs.
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fieldValue, present := obj[key]
		if !present {
			continue
		}
		checkProperty(fieldValue, props[key], joinPath(path, key), verr)
	}
}

func checkProperty(value any, prop Property, path string, verr *SchemaValidationError) {
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			verr.addf(path, "expected a string, got %s", jsonTypeName(value))
			return
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, s) {
			verr.addf(path, "%q is not one of %v", s, prop.Enum)
		}
	case "number", "integer":
		if _, ok := value.(float64); !ok {
			verr.addf(path, "expected a number, got %s", jsonTypeName(value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			verr.addf(path, "expected a boolean, got %s", jsonTypeName(value))
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			verr.addf(path, "expected an array, got %s", jsonTypeName(value))
			return
		}
		if prop.Items != nil {
			for i, entry := range arr {
				checkProperty(entry, *prop.Items, fmt.Sprintf("%s[%d]", path, i), verr)
			}
		}
	case "object":
		checkObject(value, prop.Properties, prop.Required, path, verr)
	}
}

func (e *SchemaValidationError) addf(path, format string, args ...any) {
	if path == "" {
		path = "$"
	}
	e.Violations = append(e.Violations, path+": "+fmt.Sprintf(format, args...))
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
