package genai

import (
	"encoding/json"
	"reflect"
	"testing"
)

func classificationTestSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]Property{
			"callType":   {Type: "string", Enum: []string{"Automated", "Escalated"}},
			"confidence": {Type: "number"},
			"keyPoints":  {Type: "array", Items: &Property{Type: "string"}},
			"products": {Type: "array", Items: &Property{
				Type: "object",
				Properties: map[string]Property{
					"name":  {Type: "string"},
					"score": {Type: "number"},
				},
				Required: []string{"name"},
			}},
		},
		Required: []string{"callType", "confidence"},
	}
}

func TestValidateAgainstSchema_Conforming(t *testing.T) {
	raw := json.RawMessage(`{
		"callType": "Automated",
		"confidence": 0.9,
		"keyPoints": ["a", "b"],
		"products": [{"name": "Router X", "score": 0.5}]
	}`)
	if verr := ValidateAgainstSchema(raw, classificationTestSchema()); verr != nil {
		t.Errorf("unexpected violations: %v", verr.Violations)
	}
}

func TestValidateAgainstSchema_Violations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"missing required", `{"confidence": 0.5}`, "callType: required field missing"},
		{"wrong type", `{"callType": "Automated", "confidence": "high"}`, "confidence: expected a number, got string"},
		{"enum violation", `{"callType": "Robot", "confidence": 0.5}`, `callType: "Robot" is not one of [Automated Escalated]`},
		{"bad array item", `{"callType": "Automated", "confidence": 1, "keyPoints": ["ok", 7]}`, "keyPoints[1]: expected a string, got number"},
		{"nested object missing field", `{"callType": "Automated", "confidence": 1, "products": [{"score": 0.2}]}`, "products[0].name: required field missing"},
		{"not an object", `[1, 2]`, "$: expected an object, got array"},
		{"invalid json", `{`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateAgainstSchema(json.RawMessage(tt.raw), classificationTestSchema())
			if verr == nil {
				t.Fatal("expected violations")
			}
			if tt.want == "" {
				return
			}
			found := false
			for _, v := range verr.Violations {
				if v == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("violations %v do not contain %q", verr.Violations, tt.want)
			}
		})
	}
}

func TestValidateAgainstSchema_DeterministicOrder(t *testing.T) {
	raw := json.RawMessage(`{"callType": 1, "confidence": "x", "keyPoints": "y"}`)
	first := ValidateAgainstSchema(raw, classificationTestSchema())
	for i := 0; i < 10; i++ {
		again := ValidateAgainstSchema(raw, classificationTestSchema())
		if !reflect.DeepEqual(first.Violations, again.Violations) {
			t.Fatalf("violation order varies: %v vs %v", first.Violations, again.Violations)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"with filler", `Sure! Here is the result: {"a":1}`, `{"a":1}`, false},
		{"no object", "no braces here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
