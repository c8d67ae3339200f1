package analysis

import (
	"math"
	"strconv"
	"strings"
)

// RawPayload is an untyped payload as received from an external service
// (generation output, vector-index metadata). It is only ever consumed here:
// CandidateFromRaw coerces it into a Candidate at the boundary, and no caller
// propagates the untyped map any further.
type RawPayload map[string]any

// CandidateFromRaw coerces an untyped payload into a Candidate. Missing or
// mistyped fields become zero values; the result still needs Normalize and
// ValidateFinal before it is trusted.
func CandidateFromRaw(raw RawPayload) Candidate {
	c := Candidate{
		CallType:         rawString(raw["callType"]),
		SuccessCategory:  rawString(raw["successCategory"]),
		Intent:           rawString(raw["intent"]),
		IntentCategory:   rawString(raw["intentCategory"]),
		Summary:          rawString(raw["summary"]),
		EscalationReason: rawString(raw["escalationReason"]),
		KeyPoints:        rawStrings(raw["keyPoints"]),
		ActionItems:      rawStrings(raw["actionItems"]),
	}
	c.Confidence, _ = rawFloat(raw["confidence"])

	for _, entry := range rawSlice(raw["products"]) {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		p := Product{
			ID:       rawString(m["id"]),
			Name:     rawString(m["name"]),
			Brand:    rawString(m["brand"]),
			Category: rawString(m["category"]),
		}
		p.Score, _ = rawFloat(m["score"])
		c.Products = append(c.Products, p)
	}

	for _, entry := range rawSlice(raw["keywords"]) {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		k := Keyword{Term: rawString(m["term"])}
		k.Score, _ = rawFloat(m["score"])
		c.Keywords = append(c.Keywords, k)
	}

	for _, entry := range rawSlice(raw["relatedDocs"]) {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		d := RelatedDoc{ID: rawString(m["id"])}
		d.Score, _ = rawFloat(m["score"])
		if meta, ok := m["metadata"].(map[string]any); ok {
			d.Metadata = make(map[string]string, len(meta))
			for key, val := range meta {
				d.Metadata[key] = rawString(val)
			}
		}
		c.RelatedDocs = append(c.RelatedDocs, d)
	}

	return c
}

// rawString stringifies scalar values; non-scalars become "".
func rawString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// rawFloat extracts a numeric value, accepting JSON numbers and numeric
// strings. Non-finite strings ("NaN", "Inf") are rejected like any other
// unparseable value; JSON numbers are finite by construction.
func rawFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func rawSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// rawStrings extracts a string slice, stringifying scalar entries and
// skipping anything else.
func rawStrings(v any) []string {
	entries := rawSlice(v)
	if entries == nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if s := rawString(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}
