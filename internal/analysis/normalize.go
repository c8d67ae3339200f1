package analysis

import (
	"strings"
)

// callTypeSynonyms maps lower-cased free-text call-type labels onto the
// canonical enumeration. Generation output is free text; these are the labels
// observed in practice.
var callTypeSynonyms = map[string]CallType{
	"automated":    CallTypeAutomated,
	"automatic":    CallTypeAutomated,
	"auto":         CallTypeAutomated,
	"bot":          CallTypeAutomated,
	"ivr":          CallTypeAutomated,
	"ai":           CallTypeAutomated,
	"self-service": CallTypeAutomated,
	"escalated":    CallTypeEscalated,
	"escalation":   CallTypeEscalated,
	"external":     CallTypeEscalated,
	"transfer":     CallTypeEscalated,
	"transferred":  CallTypeEscalated,
}

// NormalizeCallType maps a free-text call-type label onto the CallType
// enumeration. Unmapped input passes through trimmed but otherwise unchanged
// so the invariant layer can reject it with the original label in the reason.
func NormalizeCallType(label string) string {
	trimmed := strings.TrimSpace(label)
	if ct, ok := callTypeSynonyms[strings.ToLower(trimmed)]; ok {
		return string(ct)
	}
	return trimmed
}

// outcomeSeparators are collapsed to single spaces before substring matching.
var outcomeSeparators = strings.NewReplacer("_", " ", "-", " ", "/", " ", ".", " ")

// NormalizeOutcome maps a free-text outcome label onto the SuccessCategory
// enumeration using ordered substring rules: "partial" wins over "success"
// wins over "fail". The order is load-bearing — "partially successful" also
// contains "success" and must resolve to Partially Successful. Do not reorder.
func NormalizeOutcome(label string) string {
	trimmed := strings.TrimSpace(label)

	// Already canonical: pass through before substring rules. Without this,
	// "Unsuccessful" would match the "success" substring and flip category.
	switch SuccessCategory(trimmed) {
	case SuccessSuccessful, SuccessPartial, SuccessUnsuccessful:
		return trimmed
	}

	s := strings.ToLower(outcomeSeparators.Replace(trimmed))
	s = strings.Join(strings.Fields(s), " ")

	switch {
	case strings.Contains(s, "partial"):
		return string(SuccessPartial)
	case strings.Contains(s, "success"), strings.Contains(s, "pass"),
		strings.Contains(s, "ok"), strings.Contains(s, "resolved"):
		return string(SuccessSuccessful)
	case strings.Contains(s, "fail"), strings.Contains(s, "unsuccess"):
		return string(SuccessUnsuccessful)
	}
	return trimmed
}

// Normalize produces a best-effort canonicalized candidate. It never rejects
// input: unmappable labels and structurally broken entries are passed through
// or dropped, and the result must still go through ValidateFinal before it is
// trusted. Normalizing an already-canonical candidate is a no-op.
func Normalize(c Candidate) Candidate {
	out := c

	out.CallType = NormalizeCallType(c.CallType)
	out.SuccessCategory = NormalizeOutcome(c.SuccessCategory)
	out.Intent = strings.TrimSpace(c.Intent)
	out.IntentCategory = strings.TrimSpace(c.IntentCategory)
	out.Summary = strings.TrimSpace(c.Summary)
	out.EscalationReason = strings.TrimSpace(c.EscalationReason)
	// An escalation reason only applies to escalated calls.
	if out.CallType != string(CallTypeEscalated) {
		out.EscalationReason = ""
	}
	out.Confidence = clamp01(c.Confidence)

	out.KeyPoints = trimStrings(c.KeyPoints)
	out.ActionItems = trimStrings(c.ActionItems)
	out.Products = normalizeProducts(c.Products)
	out.Keywords = normalizeKeywords(c.Keywords)
	out.RelatedDocs = normalizeRelatedDocs(c.RelatedDocs)

	return out
}

// trimStrings trims every entry and drops the empty ones.
func trimStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeProducts coerces each entry to a well-formed Product: id falls
// back to name, name falls back to id, score is clamped to [0,1]. Entries
// missing both id and name are dropped.
func normalizeProducts(in []Product) []Product {
	if len(in) == 0 {
		return in
	}
	out := make([]Product, 0, len(in))
	for _, p := range in {
		id := strings.TrimSpace(p.ID)
		name := strings.TrimSpace(p.Name)
		if id == "" && name == "" {
			continue
		}
		if id == "" {
			id = name
		}
		if name == "" {
			name = id
		}
		out = append(out, Product{
			ID:       id,
			Name:     name,
			Score:    clamp01(p.Score),
			Brand:    strings.TrimSpace(p.Brand),
			Category: strings.TrimSpace(p.Category),
		})
	}
	return out
}

func normalizeKeywords(in []Keyword) []Keyword {
	if len(in) == 0 {
		return in
	}
	out := make([]Keyword, 0, len(in))
	for _, k := range in {
		term := strings.TrimSpace(k.Term)
		if term == "" {
			continue
		}
		out = append(out, Keyword{Term: term, Score: clamp01(k.Score)})
	}
	return out
}

func normalizeRelatedDocs(in []RelatedDoc) []RelatedDoc {
	if len(in) == 0 {
		return in
	}
	out := make([]RelatedDoc, 0, len(in))
	for _, d := range in {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			continue
		}
		d.ID = id
		out = append(out, d)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
