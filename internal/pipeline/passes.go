package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jchaffin/call-analytics-pinecone/internal/genai"
)

// Pass names reported in generation errors.
const (
	passClassification = "classification"
	passExtraction     = "extraction"
)

// PassError reports which generation pass failed and why. A wrapped
// *genai.SchemaValidationError means the pass output never matched its
// schema, even after the stricter retry.
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("%s pass failed: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// classificationResult mirrors the classification pass's output schema.
type classificationResult struct {
	CallType        string  `json:"callType"`
	SuccessCategory string  `json:"successCategory"`
	Intent          string  `json:"intent"`
	IntentCategory  string  `json:"intentCategory"`
	Confidence      float64 `json:"confidence"`
	Rationale       string  `json:"rationale"`
}

// extractionResult mirrors the extraction pass's output schema.
type extractionResult struct {
	Summary           string             `json:"summary"`
	KeyPoints         []string           `json:"keyPoints"`
	ActionItems       []string           `json:"actionItems"`
	ProductsMentioned []extractedProduct `json:"productsMentioned"`
}

type extractedProduct struct {
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

// passSpec bundles a pass's prompts and schema. The strict variants are the
// second-attempt policy: a different prompt restating the rules, not a
// repeat of the first request.
type passSpec struct {
	name         string
	system       string
	systemStrict string
	prompt       string
	promptStrict string
	schema       *genai.Schema
}

// runPass executes one generation pass as a two-attempt state machine:
// first attempt, then on schema-validation failure exactly one retry with
// the stricter instruction, then failure. Transport and credential errors
// are not retried here (the client handles transient retry; credentials are
// terminal).
func runPass(ctx context.Context, gen genai.Generator, model string, spec passSpec) (json.RawMessage, error) {
	raw, err := gen.Generate(ctx, genai.GenerateRequest{
		Model:      model,
		System:     spec.system,
		Prompt:     spec.prompt,
		SchemaName: spec.name,
		Schema:     spec.schema,
	})
	if err == nil {
		return raw, nil
	}

	var verr *genai.SchemaValidationError
	if !errors.As(err, &verr) {
		return nil, &PassError{Pass: spec.name, Err: err}
	}

	slog.Warn("pass output failed schema validation, retrying with strict prompt",
		"pass", spec.name,
		"violations", verr.Violations,
	)

	raw, err = gen.Generate(ctx, genai.GenerateRequest{
		Model:      model,
		System:     spec.systemStrict,
		Prompt:     spec.promptStrict,
		SchemaName: spec.name,
		Schema:     spec.schema,
	})
	if err != nil {
		return nil, &PassError{Pass: spec.name, Err: err}
	}
	return raw, nil
}

func classificationPass(transcriptText string) passSpec {
	return passSpec{
		name:         passClassification,
		system:       classificationSystem,
		systemStrict: classificationSystemStrict,
		prompt:       classificationPrompt(transcriptText),
		promptStrict: classificationPromptStrict(transcriptText),
		schema:       classificationSchema(),
	}
}

func extractionPass(transcriptText string) passSpec {
	return passSpec{
		name:         passExtraction,
		system:       extractionSystem,
		systemStrict: extractionSystemStrict,
		prompt:       extractionPrompt(transcriptText),
		promptStrict: extractionPromptStrict(transcriptText),
		schema:       extractionSchema(),
	}
}
