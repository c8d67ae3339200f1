// Package analysis defines the canonical shapes of call-analysis records and
// is the single source of truth for whether a composed record is valid. Raw
// generation output enters through RawPayload, is repaired by Normalize, and
// only becomes an AnalysisRecord by passing ValidateFinal.
package analysis

// CallType classifies how a call was handled end-to-end.
type CallType string

const (
	CallTypeAutomated CallType = "Automated"
	CallTypeEscalated CallType = "Escalated"
)

// SuccessCategory classifies the call outcome.
type SuccessCategory string

const (
	SuccessSuccessful   SuccessCategory = "Successful"
	SuccessPartial      SuccessCategory = "Partially Successful"
	SuccessUnsuccessful SuccessCategory = "Unsuccessful"
)

// Product is a product referenced during a call, either extracted by the
// model or carried over from related-document retrieval.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Brand    string  `json:"brand,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Keyword is a scored term extracted from the transcript.
type Keyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// RelatedDoc references a document retrieved from the vector index. Score is
// the raw similarity score and is not bounded to [0,1].
type RelatedDoc struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Candidate is the loosely-typed pre-validation shape of an analysis result.
// Field values may be non-canonical (free-text labels, out-of-range scores);
// Normalize repairs what it can and ValidateFinal decides acceptance.
type Candidate struct {
	CallType         string       `json:"callType"`
	SuccessCategory  string       `json:"successCategory"`
	Intent           string       `json:"intent"`
	IntentCategory   string       `json:"intentCategory"`
	Confidence       float64      `json:"confidence"`
	Summary          string       `json:"summary"`
	KeyPoints        []string     `json:"keyPoints"`
	ActionItems      []string     `json:"actionItems"`
	EscalationReason string       `json:"escalationReason,omitempty"`
	Products         []Product    `json:"products"`
	Keywords         []Keyword    `json:"keywords"`
	RelatedDocs      []RelatedDoc `json:"relatedDocs"`
}

// AnalysisRecord is the validated, immutable output of one analysis run.
// Construct it only through ValidateFinal.
type AnalysisRecord struct {
	CallType         CallType        `json:"callType"`
	SuccessCategory  SuccessCategory `json:"successCategory"`
	Intent           string          `json:"intent"`
	IntentCategory   string          `json:"intentCategory"`
	Confidence       float64         `json:"confidence"`
	Summary          string          `json:"summary"`
	KeyPoints        []string        `json:"keyPoints"`
	ActionItems      []string        `json:"actionItems"`
	EscalationReason string          `json:"escalationReason,omitempty"`
	Products         []Product       `json:"products"`
	Keywords         []Keyword       `json:"keywords"`
	RelatedDocs      []RelatedDoc    `json:"relatedDocs"`
	StorageRecordID  string          `json:"storageRecordId,omitempty"`
}

// Candidate converts the record back to its pre-validation shape, for
// callers that need to re-run a stored record through validation.
func (r AnalysisRecord) Candidate() Candidate {
	return Candidate{
		CallType:         string(r.CallType),
		SuccessCategory:  string(r.SuccessCategory),
		Intent:           r.Intent,
		IntentCategory:   r.IntentCategory,
		Confidence:       r.Confidence,
		Summary:          r.Summary,
		KeyPoints:        r.KeyPoints,
		ActionItems:      r.ActionItems,
		EscalationReason: r.EscalationReason,
		Products:         r.Products,
		Keywords:         r.Keywords,
		RelatedDocs:      r.RelatedDocs,
	}
}
