package analysis

import (
	"fmt"
	"math"
	"strings"
)

// FieldError names one violated field with a human-readable reason.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError enumerates every violated field of a candidate record.
// There is no partial success: a candidate either validates fully or not at all.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "analysis validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

// inUnitInterval reports whether v lies in [0,1]. NaN compares false against
// both bounds, so it needs an explicit check; ±Inf fails the bound checks.
func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// ValidateFinal checks a candidate against per-field constraints and the
// CallType/SuccessCategory cross-field rule, returning the strongly-typed
// record on success or a ValidationError listing every violation.
//
// The cross-field rule: an Automated call is never Partially Successful, and
// an Escalated call is never Successful.
func ValidateFinal(c Candidate) (*AnalysisRecord, error) {
	verr := &ValidationError{}

	callType := CallType(c.CallType)
	switch callType {
	case CallTypeAutomated, CallTypeEscalated:
	default:
		verr.add("callType", "must be %q or %q, got %q", CallTypeAutomated, CallTypeEscalated, c.CallType)
	}

	category := SuccessCategory(c.SuccessCategory)
	switch category {
	case SuccessSuccessful, SuccessPartial, SuccessUnsuccessful:
	default:
		verr.add("successCategory", "must be %q, %q or %q, got %q",
			SuccessSuccessful, SuccessPartial, SuccessUnsuccessful, c.SuccessCategory)
	}

	if callType == CallTypeAutomated && category == SuccessPartial {
		verr.add("successCategory", "automated calls cannot be %q", SuccessPartial)
	}
	if callType == CallTypeEscalated && category == SuccessSuccessful {
		verr.add("successCategory", "escalated calls cannot be %q", SuccessSuccessful)
	}

	if strings.TrimSpace(c.Intent) == "" {
		verr.add("intent", "must not be empty")
	}
	if strings.TrimSpace(c.IntentCategory) == "" {
		verr.add("intentCategory", "must not be empty")
	}
	if !inUnitInterval(c.Confidence) {
		verr.add("confidence", "must be within [0,1], got %g", c.Confidence)
	}
	if strings.TrimSpace(c.Summary) == "" {
		verr.add("summary", "must not be empty")
	}

	if len(c.KeyPoints) == 0 {
		verr.add("keyPoints", "must contain at least one entry")
	}
	for i, kp := range c.KeyPoints {
		if strings.TrimSpace(kp) == "" {
			verr.add(fmt.Sprintf("keyPoints[%d]", i), "must not be empty")
		}
	}

	for i, p := range c.Products {
		if p.ID == "" && p.Name == "" {
			verr.add(fmt.Sprintf("products[%d]", i), "must have an id or a name")
		}
		if !inUnitInterval(p.Score) {
			verr.add(fmt.Sprintf("products[%d].score", i), "must be within [0,1], got %g", p.Score)
		}
	}
	for i, k := range c.Keywords {
		if k.Term == "" {
			verr.add(fmt.Sprintf("keywords[%d].term", i), "must not be empty")
		}
		if !inUnitInterval(k.Score) {
			verr.add(fmt.Sprintf("keywords[%d].score", i), "must be within [0,1], got %g", k.Score)
		}
	}
	for i, d := range c.RelatedDocs {
		if d.ID == "" {
			verr.add(fmt.Sprintf("relatedDocs[%d].id", i), "must not be empty")
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	return &AnalysisRecord{
		CallType:         callType,
		SuccessCategory:  category,
		Intent:           c.Intent,
		IntentCategory:   c.IntentCategory,
		Confidence:       c.Confidence,
		Summary:          c.Summary,
		KeyPoints:        c.KeyPoints,
		ActionItems:      c.ActionItems,
		EscalationReason: c.EscalationReason,
		Products:         c.Products,
		Keywords:         c.Keywords,
		RelatedDocs:      c.RelatedDocs,
	}, nil
}
